package config

// Index backends.
const (
	BackendFTS5  = "fts5"
	BackendBleve = "bleve"
)

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "./data/library.db"
	}
	if cfg.Storage.BleveIndexPath == "" {
		cfg.Storage.BleveIndexPath = "./data/bleve"
	}
	if cfg.Storage.ProfilesDir == "" {
		cfg.Storage.ProfilesDir = "./tuning_profiles"
	}
	if cfg.Index.Backend == "" {
		cfg.Index.Backend = BackendFTS5
	}
	if cfg.Search.DefaultLimit == 0 {
		cfg.Search.DefaultLimit = 20
	}
	if cfg.Search.MaxLimit == 0 {
		cfg.Search.MaxLimit = 100
	}
	if cfg.Search.FetchLimit == 0 {
		cfg.Search.FetchLimit = 1000
	}
	if cfg.Search.TopQuotes == 0 {
		cfg.Search.TopQuotes = 5
	}
}
