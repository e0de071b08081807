package job

import (
	"encoding/json"
	"fmt"
)

var configFactories = map[Kind]func() Config{
	KindFile:     func() Config { return new(FileConfig) },
	KindDatabase: func() Config { return new(DatabaseConfig) },
	KindS3:       func() Config { return new(S3Config) },
}

// Kinds lists the registered kinds in display order.
func Kinds() []Kind {
	return []Kind{KindFile, KindDatabase, KindS3}
}

// LoadAs safely casts the job source to T
func LoadAs[T Config](j Job) (T, error) {
	config, ok := j.Source.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("job %q: source is %T, want %T", j.Name, j.Source, zero)
	}
	return config, nil
}

// ConfigFromMap loads a typed Config from a raw map using the kind's factory
func ConfigFromMap(kind Kind, m map[string]any) (Config, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return ConfigFromJSON(kind, data)
}

// ConfigFromJSON decodes data into the Config type registered for kind.
func ConfigFromJSON(kind Kind, data []byte) (Config, error) {
	factory, ok := configFactories[kind]
	if !ok {
		return nil, fmt.Errorf("unknown kind: %s", kind)
	}

	cfg := factory()
	if len(data) == 0 {
		return cfg, nil
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s source: %w", kind, err)
	}
	return cfg, nil
}
