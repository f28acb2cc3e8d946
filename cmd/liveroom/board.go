package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/piyushdolas8/skillswap/internal/render"
	"github.com/piyushdolas8/skillswap/internal/scene"
)

// boardPadding keeps strokes on the edge of the scene off the image border.
const boardPadding = 24

// savedBoard is the JSON file written by "export board.json" and read back by
// the export command.
type savedBoard struct {
	Topic    string          `json:"topic"`
	SavedAt  time.Time       `json:"savedAt"`
	Elements []scene.Element `json:"elements"`
	Code     string          `json:"code,omitempty"`
	Language string          `json:"language,omitempty"`
}

func (b savedBoard) store() *scene.Store {
	store := scene.NewStore()
	for _, el := range b.Elements {
		store.AddElement(el)
	}
	return store
}

func loadBoard(path string) (savedBoard, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return savedBoard{}, err
	}
	var b savedBoard
	if err := json.Unmarshal(raw, &b); err != nil {
		return savedBoard{}, fmt.Errorf("decode %s: %w", path, err)
	}
	for _, el := range b.Elements {
		if err := el.Validate(); err != nil {
			return savedBoard{}, fmt.Errorf("%s: element %s: %w", path, el.ID, err)
		}
	}
	return b, nil
}

// writeBoard picks the output format from the file extension.
func writeBoard(path string, b savedBoard) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		if err := render.WritePNG(f, b.store(), render.Options{Padding: boardPadding}); err != nil {
			f.Close()
			return err
		}
		return f.Close()

	case ".pdf":
		title := "Whiteboard"
		if b.Topic != "" {
			title += ": " + b.Topic
		}
		return render.ExportPDFFile(path, b.store(), render.PDFOptions{Title: title})

	case ".json":
		raw, err := json.MarshalIndent(b, "", "  ")
		if err != nil {
			return err
		}
		return os.WriteFile(path, append(raw, '\n'), 0o644)

	default:
		return fmt.Errorf("unsupported export format %q (use .png, .pdf or .json)", filepath.Ext(path))
	}
}
