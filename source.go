package datalab

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"golang.org/x/text/encoding/simplifiedchinese"

	"github.com/nao1215/datalab/domain/model"
)

// FileType represents an upload format
type FileType int

const (
	// FileTypeCSV represents comma-delimited text
	FileTypeCSV FileType = iota
	// FileTypeXLSX represents an Excel workbook; each sheet becomes a table
	FileTypeXLSX
	// FileTypeParquet represents an Apache Parquet file
	FileTypeParquet
	// FileTypeUnsupported represents an unsupported file type
	FileTypeUnsupported
)

// File extensions
const (
	extCSV     = ".csv"
	extXLSX    = ".xlsx"
	extParquet = ".parquet"
)

// String returns the format name
func (ft FileType) String() string {
	switch ft {
	case FileTypeCSV:
		return "csv"
	case FileTypeXLSX:
		return "xlsx"
	case FileTypeParquet:
		return "parquet"
	default:
		return "unsupported"
	}
}

// detectFileType determines the upload format after removing any
// compression extension
func detectFileType(name string) FileType {
	switch strings.ToLower(filepath.Ext(removeCompressionExtension(name))) {
	case extCSV:
		return FileTypeCSV
	case extXLSX:
		return FileTypeXLSX
	case extParquet:
		return FileTypeParquet
	default:
		return FileTypeUnsupported
	}
}

// IsSupportedFile reports whether name has an extension the loader can read,
// optionally followed by .gz, .bz2, .xz or .zst.
func IsSupportedFile(name string) bool {
	return detectFileType(name) != FileTypeUnsupported
}

// Encoding is the character encoding of delimited uploads.
type Encoding string

const (
	// EncodingUTF8 is UTF-8, the default
	EncodingUTF8 Encoding = "utf-8"
	// EncodingGBK is the simplified Chinese GBK code page
	EncodingGBK Encoding = "gbk"
)

// utf8BOM is stripped from decoded text
const utf8BOM = "\ufeff"

// ParseEncoding converts an encoding label to an Encoding.
func ParseEncoding(s string) (Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "utf-8", "utf8":
		return EncodingUTF8, nil
	case "gbk", "gb2312", "cp936":
		return EncodingGBK, nil
	default:
		return "", fmt.Errorf("unsupported encoding: %s", s)
	}
}

// decode converts raw bytes to text.
func (e Encoding) decode(data []byte) (string, error) {
	switch e {
	case "", EncodingUTF8:
		return strings.TrimPrefix(string(data), utf8BOM), nil
	case EncodingGBK:
		decoded, err := simplifiedchinese.GBK.NewDecoder().Bytes(data)
		if err != nil {
			return "", fmt.Errorf("failed to decode gbk text: %w", err)
		}
		return strings.TrimPrefix(string(decoded), utf8BOM), nil
	default:
		return "", fmt.Errorf("unsupported encoding: %s", e)
	}
}

// readDatasets reads one upload and returns a dataset per table it holds.
// name selects the format and compression by extension and names the tables.
func readDatasets(ctx context.Context, r io.Reader, name string, enc Encoding) ([]*model.Dataset, error) {
	fileType := detectFileType(name)
	if fileType == FileTypeUnsupported {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, name)
	}

	reader, cleanup, err := newDecompressingReader(r, detectCompression(name))
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = cleanup()
	}()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}

	switch fileType {
	case FileTypeXLSX:
		return parseXLSX(bytes.NewReader(data), name)
	case FileTypeParquet:
		return parseParquet(ctx, data, name)
	default:
		text, err := enc.decode(data)
		if err != nil {
			return nil, err
		}
		ds, err := model.ParseDataset(text, name)
		if err != nil {
			return nil, err
		}
		return []*model.Dataset{ds}, nil
	}
}
