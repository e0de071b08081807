package job

import "errors"

type FileConfig struct {
	SourcePath string `json:"source_path"`
}

func (c *FileConfig) Validate() error {
	if c.SourcePath == "" {
		return errors.New("source_path is required")
	}
	return nil
}

func (c *FileConfig) Kind() Kind { return KindFile }
