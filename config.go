package datalens

import (
	"os"
	"path/filepath"

	"github.com/Depfrz/PGN-DataLens/ocr"
)

// Config holds all configuration for the DataLens engine.
type Config struct {
	// DBPath is the full path to the SQLite database file.
	// If empty, defaults to ~/.datalens/<DBName>.db
	DBPath string `json:"db_path" yaml:"db_path"`

	// DBName is the name for the database (used when DBPath is empty).
	// Defaults to "datalens".
	DBName string `json:"db_name" yaml:"db_name"`

	// StorageDir controls where the database and document blobs are created
	// when DBPath/BlobDir are not explicitly set. Options: "home" (default)
	// uses ~/.datalens/, "local" uses the current working directory.
	StorageDir string `json:"storage_dir" yaml:"storage_dir"`

	// BlobDir is where registered PDF documents are kept on disk.
	// If empty, defaults to a "blobs" directory next to the database.
	BlobDir string `json:"blob_dir" yaml:"blob_dir"`

	// OCR configures the fallback OCR engine. An unset or missing tesseract
	// binary is a recoverable condition: extraction continues on whatever
	// the text layer produced.
	OCR ocr.Config `json:"ocr" yaml:"ocr"`

	// MaxRows caps the number of material rows any parser may emit for a
	// single document, bounding degenerate inputs.
	MaxRows int `json:"max_rows" yaml:"max_rows"`

	// MinTextChars is the minimum number of non-whitespace characters the
	// text layer must produce before OCR is skipped. The same threshold
	// feeds the run success criterion.
	MinTextChars int `json:"min_text_chars" yaml:"min_text_chars"`
}

// DefaultConfig returns a Config with sensible defaults.
// Database is stored in ~/.datalens/datalens.db by default.
func DefaultConfig() Config {
	return Config{
		DBName:       "datalens",
		StorageDir:   "home",
		OCR:          ocr.DefaultConfig(),
		MaxRows:      5000,
		MinTextChars: 10,
	}
}

// resolveDBPath computes the final database path from config fields.
func (c *Config) resolveDBPath() string {
	if c.DBPath != "" {
		return c.DBPath
	}

	name := c.DBName
	if name == "" {
		name = "datalens"
	}

	switch c.StorageDir {
	case "local", "cwd":
		return name + ".db"
	default: // "home" or empty
		home, err := os.UserHomeDir()
		if err != nil {
			return name + ".db" // fallback to cwd
		}
		return filepath.Join(home, ".datalens", name+".db")
	}
}

// resolveBlobDir computes the directory for stored document bytes.
func (c *Config) resolveBlobDir() string {
	if c.BlobDir != "" {
		return c.BlobDir
	}
	return filepath.Join(filepath.Dir(c.resolveDBPath()), "blobs")
}
