package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gioco-play/easy-i18n/i18n"
	"github.com/spf13/cobra"

	"nunu-cli/internal/config"
	"nunu-cli/internal/infra/api"
	"nunu-cli/internal/infra/storage"
	"nunu-cli/internal/metadata"
	apperrors "nunu-cli/internal/pkg/errors"
	"nunu-cli/internal/pkg/format"
	"nunu-cli/internal/pkg/progress"
	"nunu-cli/internal/pkg/ratelimit"
	"nunu-cli/internal/service"
	"nunu-cli/internal/upload"
	"nunu-cli/pkg/version"
)

var (
	// Connection flags
	uploadToken     string
	uploadProjectID string
	uploadAPIURL    string

	// Build flags
	uploadName           string
	uploadPlatform       string
	uploadDescription    string
	uploadTimeout        int
	uploadAutoDelete     bool
	uploadDeletionPolicy string
	uploadTags           []string
	uploadNoMetadata     bool

	// Transfer flags
	uploadForceMultipart bool
	uploadParallel       int
	uploadIOLimit        string
)

// uploadCmd represents the upload command
var uploadCmd = &cobra.Command{
	Use:   "upload FILE...",
	Short: "Upload one or more build artifacts",
	Long: `Upload build artifacts to a Nunu.ai project.

Files larger than 3 GiB are sent as multipart uploads. Several files are
uploaded concurrently; with more than one file the build name is used as a
template: "<name> - <file name>".

The platform is inferred from the file extension (exe, msi, dmg, pkg, ipa,
apk, deb, rpm, AppImage) unless --platform is given.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runUpload,
}

func init() {
	f := uploadCmd.Flags()
	f.StringVarP(&uploadToken, "token", "t", "", "API token (env NUNU_API_TOKEN)")
	f.StringVarP(&uploadProjectID, "project-id", "p", "", "project ID (env NUNU_PROJECT_ID)")
	f.StringVar(&uploadAPIURL, "api-url", "", "API base URL (env NUNU_API_URL, default "+config.DefaultAPIURL+")")

	f.StringVarP(&uploadName, "name", "n", "", "build name (template when uploading several files)")
	f.StringVar(&uploadPlatform, "platform", "", "target platform: windows, macos, linux, android, ios-native, ios-simulator, xbox, playstation")
	f.StringVarP(&uploadDescription, "description", "d", "", "build description")
	f.IntVar(&uploadTimeout, "upload-timeout", 0, "upload timeout in minutes (1-1440, server default when unset)")
	f.BoolVar(&uploadAutoDelete, "auto-delete", false, "delete old builds when the storage limit is exceeded")
	f.StringVar(&uploadDeletionPolicy, "deletion-policy", "", "which builds auto-delete removes: least_recent (default) or oldest")
	f.StringArrayVar(&uploadTags, "tag", nil, "tag the build (repeatable)")
	f.BoolVar(&uploadNoMetadata, "no-metadata", false, "do not send VCS and CI details")

	f.BoolVar(&uploadForceMultipart, "force-multipart", false, "use multipart upload regardless of file size")
	f.IntVar(&uploadParallel, "parallel", upload.DefaultConcurrency, "parallel files and parts per file (1-32)")
	f.StringVar(&uploadIOLimit, "io-limit", "", "bandwidth limit per process, e.g. 50MB/s (unlimited when unset)")

	_ = uploadCmd.MarkFlagRequired("name")
	rootCmd.AddCommand(uploadCmd)
}

func runUpload(cmd *cobra.Command, args []string) error {
	if cmd.Flags().Changed("upload-timeout") && (uploadTimeout < 1 || uploadTimeout > 1440) {
		return apperrors.NewConfigError(fmt.Sprintf("Upload timeout must be between 1 and 1440 minutes, got %d", uploadTimeout), nil)
	}

	cfg, err := config.NewLoader(logger).Load(config.Flags{
		ConfigPath: cfgFile,
		APIToken:   uploadToken,
		ProjectID:  uploadProjectID,
		APIURL:     uploadAPIURL,
	})
	if err != nil {
		return err
	}
	if cfg.APIToken == "" && isTerminal(os.Stdin) {
		if cfg.APIToken, err = promptToken(); err != nil {
			return apperrors.NewConfigError("Failed to read API token", err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	logger.WriteLog("CONFIG", "Effective config: %+v", cfg.Redacted())

	bytesPerSecond, err := config.ParseRateLimit(uploadIOLimit)
	if err != nil {
		return err
	}

	if isTerminal(os.Stderr) {
		outputHeader(os.Stderr)
	}
	i18n.Printf("[nunu-cli] Using API URL: %s\n", cfg.APIURL)
	if bytesPerSecond > 0 {
		i18n.Printf("[nunu-cli] IO rate limit set to: %s/s\n", format.Bytes(bytesPerSecond))
	}

	httpClient := api.NewHTTPClient()
	api.LogProxy(logger, cfg.APIURL)
	client := api.NewClient(cfg.BaseUploadURL(), cfg.APIToken, httpClient, logger)
	uploader := storage.NewHTTPUploader(httpClient, ratelimit.NewLimiter(bytesPerSecond), logger)
	engine := upload.NewEngine(client, uploader, logger)

	board := progress.NewBoard(os.Stderr, isTerminal(os.Stderr))
	svc := service.NewUploadService(engine, board, logger)

	req := service.UploadRequest{
		Files:          args,
		Name:           uploadName,
		Platform:       uploadPlatform,
		Description:    uploadDescription,
		UploadTimeout:  uploadTimeout,
		Tags:           uploadTags,
		AutoDelete:     uploadAutoDelete,
		DeletionPolicy: uploadDeletionPolicy,
		ForceMultipart: uploadForceMultipart,
		Parallel:       uploadParallel,
	}
	if !uploadNoMetadata {
		workDir, _ := os.Getwd()
		req.Details = metadata.NewCollector(workDir).Collect(version.Get())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	results, err := svc.Upload(ctx, req)
	if results == nil {
		return err
	}
	service.Report(os.Stdout, results)
	if err != nil {
		failed := 0
		for _, r := range results {
			if r.Err != nil {
				failed++
			}
		}
		logger.WriteLog("UPLOAD", "%v", err)
		return fmt.Errorf("%d file(s) failed to upload", failed)
	}
	return nil
}
