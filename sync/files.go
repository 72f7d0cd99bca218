package sync

import (
	"bytes"
	"errors"
	"io"
	"io/fs"
	"path"
)

type ConfigFile struct {
	Name   string
	Reader io.Reader
	Length int
}

type EmbeddedConfig struct {
	Root  string
	Files EmbeddedFS
}

type EmbeddedFS interface {
	Open(name string) (fs.File, error)
	ReadDir(name string) ([]fs.DirEntry, error)
	ReadFile(name string) ([]byte, error)
}

func (ec EmbeddedConfig) MustFindRootConfigFile(filename string) (ConfigFile, error) {
	var result ConfigFile
	name := path.Join(ec.Root, filename)
	b, err := ec.Files.ReadFile(name)
	if err == nil {
		result.Name = name
		result.Reader = bytes.NewReader(b)
		result.Length = len(b)
	}
	return result, err
}

func (ec EmbeddedConfig) MustFindDefaultsConfigFile() (ConfigFile, error) {
	return ec.MustFindRootConfigFile("defaults.yaml")
}

// FindJobConfigFile returns the overlay for a job, e.g. jobs/sync-mailing.yaml.
// Jobs without an overlay get an empty ConfigFile and no error.
func (ec EmbeddedConfig) FindJobConfigFile(job string) (ConfigFile, error) {
	result, err := ec.MustFindRootConfigFile(path.Join("jobs", job+".yaml"))
	if errors.Is(err, fs.ErrNotExist) {
		return ConfigFile{}, nil
	}
	return result, err
}
