package report

import (
	"time"

	"github.com/ppiankov/leakspectre/internal/engine"
)

// Reporter interface for different report formats
type Reporter interface {
	Generate(data Data) error
}

// Data contains all report data
type Data struct {
	Tool      string         `json:"tool"`
	Version   string         `json:"version"`
	Timestamp time.Time      `json:"timestamp"`
	Config    Config         `json:"config"`
	Result    *engine.Result `json:"result"`
	Aborted   bool           `json:"aborted,omitempty"`
}

// Config contains scan configuration
type Config struct {
	Bucket     string  `json:"bucket"`
	Prefix     string  `json:"prefix,omitempty"`
	AWSProfile string  `json:"aws_profile,omitempty"`
	AWSRegion  string  `json:"aws_region,omitempty"`
	Threshold  float64 `json:"threshold"`
	Workers    int     `json:"workers"`
}
