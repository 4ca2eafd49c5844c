package mediasvc

import (
	"bytes"
	"encoding/base64"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/gabriel-vasile/mimetype"
	"github.com/pkg/errors"
)

const dataPrefix = "data:"

var ErrNotImage = errors.New("not an image")

// Decode reads a base64 picture as stored by the backend, with or without padding.
func Decode(b64 string) ([]byte, error) {
	b64 = strings.TrimSpace(b64)
	if strings.HasPrefix(b64, dataPrefix) {
		if i := strings.Index(b64, ","); i >= 0 {
			b64 = b64[i+1:]
		}
	}
	data, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		if data, err = base64.RawStdEncoding.DecodeString(b64); err != nil {
			return nil, errors.Wrap(err, "decoding base64 image")
		}
	}
	return data, nil
}

// DataURI turns a base64 picture into a data URI usable as an <img> src.
// Values that already are data URIs are returned unchanged.
func DataURI(b64 string) (string, error) {
	b64 = strings.TrimSpace(b64)
	if strings.HasPrefix(b64, dataPrefix) {
		return b64, nil
	}
	data, err := Decode(b64)
	if err != nil {
		return "", err
	}
	mime := mimetype.Detect(data)
	if !strings.HasPrefix(mime.String(), "image/") {
		return "", errors.Wrap(ErrNotImage, mime.String())
	}
	return dataPrefix + mime.String() + ";base64," + b64, nil
}

// Fit shrinks a base64 picture to maxWidth, keeping its aspect ratio, and returns it as a data URI.
// Pictures already narrow enough, and a maxWidth <= 0, only get wrapped.
func Fit(b64 string, maxWidth int) (string, error) {
	if maxWidth <= 0 {
		return DataURI(b64)
	}
	data, err := Decode(b64)
	if err != nil {
		return "", err
	}
	mime := mimetype.Detect(data)
	format, err := imaging.FormatFromExtension(mime.Extension())
	if err != nil {
		// formats imaging can't write (svg, webp...) are served as is
		return DataURI(b64)
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return "", errors.Wrap(err, "decoding image")
	}
	if img.Bounds().Dx() <= maxWidth {
		return DataURI(b64)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, imaging.Resize(img, maxWidth, 0, imaging.Lanczos), format); err != nil {
		return "", errors.Wrap(err, "encoding image")
	}
	return dataPrefix + mime.String() + ";base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// FitAll applies Fit to every picture, dropping the ones that can't be read.
func FitAll(imgs []string, maxWidth int) ([]string, []error) {
	out := make([]string, 0, len(imgs))
	var errs []error
	for _, img := range imgs {
		uri, err := Fit(img, maxWidth)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out = append(out, uri)
	}
	return out, errs
}
