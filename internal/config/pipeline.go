package config

// PipelineConfig bounds one request through the pipeline.
type PipelineConfig struct {
	MaxCategories    int    `yaml:"max_categories"`     // 1..3
	HistoryLimit     int    `yaml:"history_limit"`      // messages read from the store per request
	HistoryWindow    int    `yaml:"history_window"`     // turns shown to classifier/context prompts
	MaxResponseChars int    `yaml:"max_response_chars"` // combined reply cap, in runes
	HandlerTimeout   string `yaml:"handler_timeout"`
	RequestTimeout   string `yaml:"request_timeout"`
	ArchiveTimeout   string `yaml:"archive_timeout"`
	RecallLimit      int    `yaml:"recall_limit"` // archived memories fed to the context builder, 0 disables
}

// StoreConfig configures conversation and semantic storage.
type StoreConfig struct {
	Backend             string `yaml:"backend"` // sqlite, firestore, memory
	DatabasePath        string `yaml:"database_path"`
	MaxHistory          int    `yaml:"max_history"`
	GCPProject          string `yaml:"gcp_project,omitempty"`
	FirestoreCollection string `yaml:"firestore_collection"`
	ArchiveCollection   string `yaml:"archive_collection"`
}
