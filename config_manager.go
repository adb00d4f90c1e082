package main

import (
	"errors"
	"io/fs"

	"github.com/Returtless/http-server/model"
	"github.com/Returtless/http-server/props"
)

// getProperties reads and validates hs.properties. A missing file is not an
// error: the server then runs on defaults.
func getProperties(confFilePath string) (model.Config, *model.ServerProperties, error) {

	cfg, err := props.GetConfiguration(confFilePath)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return cfg, nil, err
		}
		cfg = model.Config{}
	}

	if err := props.Validate(cfg); err != nil {
		return cfg, nil, err
	}

	return cfg, props.GetAssignedProperties(cfg), nil
}
