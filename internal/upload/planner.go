package upload

import (
	"fmt"

	apperrors "nunu-cli/internal/pkg/errors"
)

// Part is the byte range [Offset, Offset+Length) of the file owned by part Number
type Part struct {
	Number int
	Offset int64
	Length int64
}

// End returns the offset one past the last byte of the part
func (p Part) End() int64 {
	return p.Offset + p.Length
}

// PlanParts splits a file into the parts the backend expects. Part n covers
// [(n-1)*partSize, min(n*partSize, fileSize)); only the last part may be
// short. A zero-byte file is a single empty part. totalParts is the count
// the backend announced and must agree with the arithmetic.
func PlanParts(fileSize, partSize int64, totalParts int) ([]Part, error) {
	if fileSize < 0 {
		return nil, apperrors.NewFileIOError(fmt.Sprintf("Invalid file size %d", fileSize), nil)
	}
	if partSize <= 0 {
		return nil, apperrors.NewParseError(
			fmt.Sprintf("Backend returned invalid part_size %d", partSize), "", nil)
	}

	expected := int((fileSize + partSize - 1) / partSize)
	if expected == 0 {
		expected = 1
	}
	if totalParts != expected {
		return nil, apperrors.NewParseError(fmt.Sprintf(
			"Backend returned total_parts=%d with part_size=%d, but a %d byte file needs %d parts",
			totalParts, partSize, fileSize, expected), "", nil)
	}

	parts := make([]Part, totalParts)
	for i := range parts {
		offset := int64(i) * partSize
		end := offset + partSize
		if end > fileSize {
			end = fileSize
		}
		parts[i] = Part{Number: i + 1, Offset: offset, Length: end - offset}
	}
	return parts, nil
}
