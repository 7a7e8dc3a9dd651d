package profile

import (
	"path/filepath"
	"sort"

	"github.com/sirupsen/logrus"
)

// Info describes one switchable profile file.
type Info struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

type Finder interface {
	List() []Info
}

type finder struct {
	logger *logrus.Logger
	dir    string
}

func NewFinder(logger *logrus.Logger, dir string) Finder {
	return &finder{logger: logger, dir: dir}
}

func (f *finder) List() []Info {
	var infos []Info
	for _, pattern := range []string{"*.yaml", "*.yml"} {
		matches, err := filepath.Glob(filepath.Join(f.dir, pattern))
		if err != nil {
			f.logger.WithError(err).Error("failed to scan profiles directory")
			continue
		}
		for _, m := range matches {
			infos = append(infos, Info{Name: filepath.Base(m), Path: m})
		}
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}
