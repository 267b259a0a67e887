package export

import (
	"context"
	"testing"

	"github.com/jlillywh/hydrosim/pkg/engine"
)

func TestNewPDFExporter(t *testing.T) {
	g := NewPDFExporter()
	if g == nil {
		t.Fatal("NewPDFExporter should not return nil")
	}
}

func TestPDFExporter_Format(t *testing.T) {
	g := NewPDFExporter()
	if g.Format() != FormatPDF {
		t.Errorf("Format() = %v, want pdf", g.Format())
	}
}

func TestPDFExporter_Export(t *testing.T) {
	g := NewPDFExporter()
	ctx := context.Background()

	result, err := g.Export(ctx, sampleResults())
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	// PDF signature: %PDF-
	if len(result) < 5 {
		t.Fatal("PDF file too small")
	}
	if string(result[:5]) != "%PDF-" {
		t.Error("Result doesn't look like a valid PDF file")
	}
}

func TestPDFExporter_Export_NoSummary(t *testing.T) {
	g := NewPDFExporter()

	results := &engine.Results{
		RunID:   "run-failed",
		Network: "dry-creek",
		Status:  engine.StatusFailed,
	}

	result, err := g.Export(context.Background(), results)
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	if len(result) < 5 || string(result[:5]) != "%PDF-" {
		t.Error("PDF should still be generated without a summary")
	}
}
