package resume

import (
	"fmt"
	"os"
	"unicode/utf8"

	"github.com/vinayprograms/resumematch/errors"
)

// ReadJobDescription returns the full contents of the job description file.
func ReadJobDescription(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", errors.WrapWithCode(err, errors.ErrCodeNotFound,
				fmt.Sprintf("job description not found at %s", path), errors.WithMetadata("path", path))
		}
		return "", errors.Wrap(err, fmt.Sprintf("failed to read job description %s", path),
			errors.WithMetadata("path", path))
	}
	if !utf8.Valid(data) {
		return "", errors.InvalidInput(fmt.Sprintf("job description %s is not valid UTF-8", path),
			errors.WithMetadata("path", path))
	}
	return string(data), nil
}
