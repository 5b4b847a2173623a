package labels

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/xid"

	"labelprint/internal/domain"
	"labelprint/internal/infra/logging"
)

// workspace holds the file locations of one job.
type workspace struct {
	id       string
	job      domain.RenderJob
	isolated bool
	release  func()
}

// prepareWorkspace returns the shared fixed paths, or with IsolateJobs a
// fresh temporary directory holding a copy of the template. The temporary
// directory is removed by release.
func (s *Service) prepareWorkspace() (*workspace, error) {
	id := xid.New().String()

	if !s.cfg.IsolateJobs {
		return &workspace{
			id: id,
			job: domain.RenderJob{
				WorkDir:  s.cfg.BaseDir,
				Template: s.cfg.TemplatePath(),
				Data:     s.cfg.DataPath(),
				Output:   s.cfg.OutputPath(),
			},
			release: func() {},
		}, nil
	}

	dir, err := os.MkdirTemp("", "labelprint-"+id+"-")
	if err != nil {
		return nil, fmt.Errorf("create job directory: %w", err)
	}
	cleanup := func() {
		if err := os.RemoveAll(dir); err != nil {
			logging.Warn("Failed to remove job directory", "dir", dir, "error", err)
		}
	}

	template := filepath.Join(dir, s.cfg.Template)
	if err := copyFile(s.cfg.TemplatePath(), template); err != nil {
		cleanup()
		return nil, fmt.Errorf("copy template: %w", err)
	}

	stem := strings.TrimSuffix(s.cfg.Template, filepath.Ext(s.cfg.Template))
	return &workspace{
		id: id,
		job: domain.RenderJob{
			WorkDir:  dir,
			Template: template,
			Data:     filepath.Join(dir, s.cfg.DataFile),
			Output:   filepath.Join(dir, stem+".pdf"),
		},
		isolated: true,
		release:  cleanup,
	}, nil
}

func copyFile(src, dst string) error {
	b, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, b, 0o644)
}
