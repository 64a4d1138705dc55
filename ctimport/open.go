package ctimport

import (
	"bufio"
	"compress/bzip2"
	"compress/gzip"
	"compress/zlib"
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/carbocation/pfx"
	"github.com/krolaw/zipstream"
	"github.com/xi2/xz"
)

type DataType byte

const (
	DataTypeInvalid DataType = iota
	DataTypeNoCompression
	DataTypeGzip
	DataTypeZip
	DataTypeXZ
	DataTypeZlib
	DataTypeBZip2
)

// Byte code signatures from https://stackoverflow.com/a/19127748/199475. Zlib
// is matched on its default-compression header only.
var byteCodeSigs = map[DataType][]byte{
	DataTypeGzip:  {0x1f, 0x8b, 0x08},
	DataTypeZip:   {0x50, 0x4b, 0x03, 0x04},
	DataTypeXZ:    {0xfd, 0x37, 0x7a, 0x58, 0x5a, 0x00},
	DataTypeZlib:  {0x78, 0x9c},
	DataTypeBZip2: {0x42, 0x5a, 0x68},
}

// DetectDataType peeks at the head of the stream without consuming it.
func DetectDataType(r *bufio.Reader) (DataType, error) {
	buff, err := r.Peek(6)
	if err != nil && err != io.EOF {
		return DataTypeInvalid, err
	}

Outer:
	for dt, sig := range byteCodeSigs {
		if len(buff) < len(sig) {
			continue
		}
		for position := range sig {
			if buff[position] != sig[position] {
				continue Outer
			}
		}
		return dt, nil
	}

	return DataTypeNoCompression, nil
}

// OpenRaw opens a local path, or a gs://bucket/object path when client is
// non-nil, without any decompression.
func OpenRaw(ctx context.Context, filePath string, client *storage.Client) (io.ReadCloser, error) {
	if strings.HasPrefix(filePath, "gs://") {
		if client == nil {
			return nil, fmt.Errorf("%s: a Google Storage client is required for gs:// paths", filePath)
		}

		pathParts := strings.SplitN(strings.TrimPrefix(filePath, "gs://"), "/", 2)
		if len(pathParts) != 2 {
			return nil, fmt.Errorf("Tried to split your google storage path into 2 parts, but got %d: %v", len(pathParts), pathParts)
		}

		rdr, err := client.Bucket(pathParts[0]).Object(pathParts[1]).NewReader(ctx)
		if err != nil {
			return nil, pfx.Err(fmt.Errorf("%s: %s", filePath, err))
		}

		return rdr, nil
	}

	f, err := os.Open(ExpandHome(filePath))
	if err != nil {
		return nil, pfx.Err(err)
	}

	return f, nil
}

// Open is OpenRaw followed by transparent decompression of gzip, zip, xz,
// zlib or bzip2 streams.
func Open(ctx context.Context, filePath string, client *storage.Client) (io.ReadCloser, error) {
	raw, err := OpenRaw(ctx, filePath, client)
	if err != nil {
		return nil, err
	}

	rdr, err := maybeDecompress(raw)
	if err != nil {
		raw.Close()
		return nil, pfx.Err(fmt.Errorf("%s: %w", filePath, err))
	}

	return rdr, nil
}

func maybeDecompress(raw io.ReadCloser) (io.ReadCloser, error) {
	buffered := bufio.NewReader(raw)

	dt, err := DetectDataType(buffered)
	if err != nil {
		return nil, err
	}

	var inner io.Reader
	switch dt {
	case DataTypeGzip:
		inner, err = gzip.NewReader(buffered)
	case DataTypeZip:
		zr := zipstream.NewReader(buffered)
		if _, err = zr.Next(); err == nil {
			inner = zr
		}
	case DataTypeBZip2:
		inner = bzip2.NewReader(buffered)
	case DataTypeXZ:
		inner, err = xz.NewReader(buffered, 0)
	case DataTypeZlib:
		inner, err = zlib.NewReader(buffered)
	default:
		inner = buffered
	}
	if err != nil {
		return nil, err
	}

	return &stackedReadCloser{Reader: inner, under: raw}, nil
}

// stackedReadCloser reads from the decompressor but closes the underlying
// file or object.
type stackedReadCloser struct {
	io.Reader
	under io.Closer
}

func (c *stackedReadCloser) Close() error {
	if closer, ok := c.Reader.(io.Closer); ok {
		closer.Close()
	}
	return c.under.Close()
}

// SourceName is the file name recorded on each record: the last path
// element, with gs:// prefixes removed.
func SourceName(filePath string) string {
	return path.Base(strings.TrimPrefix(filePath, "gs://"))
}
