package configs

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"

	kerrors "github.com/medeasy/medkeys/internal/errors"
	"github.com/medeasy/medkeys/internal/utils"
)

// SaveTOML saves a struct to a TOML file with owner-only permissions.
func SaveTOML(filePath string, data interface{}) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(data); err != nil {
		return err
	}
	return utils.WriteFileAtomic(filePath, buf.Bytes(), 0600)
}

// LoadTOML loads a TOML file into a struct. Keys the struct does not know
// about are rejected so that typos do not silently fall back to defaults.
func LoadTOML(filePath string, data interface{}) error {
	md, err := toml.DecodeFile(filePath, data)
	if err != nil {
		return err
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return fmt.Errorf("%w: unknown keys %s", kerrors.ErrInvalidConfig, strings.Join(keys, ", "))
	}
	return nil
}
