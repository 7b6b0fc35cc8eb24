package config

import "time"

// WikiSection is the wiki block of the configuration file.
type WikiSection struct {
	Endpoint  string `yaml:"endpoint,omitempty"`
	User      string `yaml:"user,omitempty"`
	UserAgent string `yaml:"userAgent,omitempty"`
	Proxy     string `yaml:"proxy,omitempty"`
}

// HistorySection is the history block of the configuration file.
type HistorySection struct {
	// Enabled turns history recording off when explicitly false.
	Enabled *bool  `yaml:"enabled,omitempty"`
	Dir     string `yaml:"dir,omitempty"`
}

// File represents the structure of the .packagebot configuration file.
// Passwords are deliberately absent; use the environment or a .env file.
type File struct {
	Tree        string         `yaml:"tree,omitempty"`
	Jobs        int            `yaml:"jobs,omitempty"`
	Strategy    string         `yaml:"strategy,omitempty"`
	Timeout     time.Duration  `yaml:"timeout,omitempty"`
	TitleWindow int            `yaml:"titleWindow,omitempty"`
	Wiki        WikiSection    `yaml:"wiki,omitempty"`
	History     HistorySection `yaml:"history,omitempty"`
}

// Apply copies every value set in the file over cfg.
func (f *File) Apply(cfg *Config) {
	if f.Tree != "" {
		cfg.Tree = f.Tree
	}
	if f.Jobs != 0 {
		cfg.Jobs = f.Jobs
	}
	if f.Strategy != "" {
		cfg.Strategy = f.Strategy
	}
	if f.Timeout != 0 {
		cfg.Timeout = f.Timeout
	}
	if f.TitleWindow != 0 {
		cfg.TitleWindow = f.TitleWindow
	}
	if f.Wiki.Endpoint != "" {
		cfg.Endpoint = f.Wiki.Endpoint
	}
	if f.Wiki.User != "" {
		cfg.User = f.Wiki.User
	}
	if f.Wiki.UserAgent != "" {
		cfg.UserAgent = f.Wiki.UserAgent
	}
	if f.Wiki.Proxy != "" {
		cfg.Proxy = f.Wiki.Proxy
	}
	if f.History.Enabled != nil {
		cfg.SaveHistory = *f.History.Enabled
	}
	if f.History.Dir != "" {
		cfg.DBDir = f.History.Dir
	}
}
