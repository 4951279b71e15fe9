package main

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
)

// envPrefix marks the .env entries that become encoder options:
// JPEGENC_LIBJPEG_QUALITY=80 sets libjpeg_quality.
const envPrefix = "JPEGENC_"

// optionList collects repeated -opt key=value flags.
type optionList map[string]string

func (o optionList) String() string {
	parts := make([]string, 0, len(o))
	for k, v := range o {
		parts = append(parts, k+"="+v)
	}
	return strings.Join(parts, ",")
}

func (o optionList) Set(s string) error {
	k, v, ok := strings.Cut(s, "=")
	if !ok || k == "" {
		return errors.Errorf("option %q is not key=value", s)
	}
	o[k] = v
	return nil
}

// envOptions reads the encoder options from a .env file. A missing file is
// only an error when required is set.
func envOptions(path string, required bool) (map[string]string, error) {
	env, err := godotenv.Read(path)
	if err != nil {
		if !required && errors.Is(err, os.ErrNotExist) {
			return map[string]string{}, nil
		}
		return nil, errors.Wrapf(err, "read %s", path)
	}
	options := map[string]string{}
	for k, v := range env {
		name, ok := strings.CutPrefix(k, envPrefix)
		if !ok || name == "" {
			continue
		}
		options[strings.ToLower(name)] = v
	}
	return options, nil
}
