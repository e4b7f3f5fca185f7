package i18n

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// zh maps each console message to its Simplified Chinese form
var zh = map[string]string{
	// progress
	"[nunu-cli] %s: %d%%\n":                                    "[nunu-cli] %s: %d%%\n",
	"[nunu-cli] %s: transfer failed\n":                         "[nunu-cli] %s: 传输失败\n",
	"[nunu-cli] Using API URL: %s\n":                           "[nunu-cli] 使用 API 地址: %s\n",
	"[nunu-cli] Uploading %d file(s)\n":                        "[nunu-cli] 正在上传 %d 个文件\n",
	"[nunu-cli] IO rate limit set to: %s/s\n":                  "[nunu-cli] IO 限速: %s/s\n",
	"[nunu-cli] Interrupted, aborting unfinished uploads...\n": "[nunu-cli] 已中断, 正在取消未完成的上传...\n",
	"[nunu-cli] Some uploads could not be aborted: %v\n":       "[nunu-cli] 部分上传无法取消: %v\n",
	"[nunu-cli] Log file: %s\n":                                "[nunu-cli] 日志文件: %s\n",
	"Enter API token: ":                                        "请输入 API token: ",
	"Error: %v\n":                                              "错误: %v\n",
	"Nunu CLI v%s\n":                                           "Nunu CLI v%s\n",

	// summary
	"Successfully uploaded %d file(s)": "成功上传 %d 个文件",
	"Failed to upload %d file(s)":      "%d 个文件上传失败",
	"Build ID: %s":                     "构建 ID: %s",

	// file checks
	"File does not exist: %s": "文件不存在: %s",
	"Cannot stat file: %v":    "无法读取文件信息: %v",
	"Path is a directory: %s": "路径是目录: %s",
	"Not a regular file: %s":  "不是普通文件: %s",
	"Cannot open file: %v":    "无法打开文件: %v",
}

func register() {
	for key, translation := range zh {
		message.SetString(language.English, key, key)
		message.SetString(language.SimplifiedChinese, key, translation)
	}
}
