package gateway

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"latidos/metrics"
	"latidos/utils"

	"github.com/apex/log"
	"github.com/gabriel-vasile/mimetype"
	"google.golang.org/genai"
)

const maxSourceImageBytes = 20 << 20

// EditImage applies a free text instruction to the image behind imageRef and returns the
// first image the model produces. imageRef is a data URL or an http(s) URL. Failures to load
// the source and responses without an image part wrap ErrImageEdit.
func (g *Gateway) EditImage(ctx context.Context, imageRef, instruction string) (img Image, err error) {
	start := time.Now()
	defer func() { metrics.ObserveGateway("edit_image", start, err) }()

	src, err := g.LoadImage(ctx, imageRef)
	if err != nil {
		log.WithError(err).Warn("Failed to load source image for edit")
		return Image{}, fmt.Errorf("%w: %w", ErrImageEdit, err)
	}

	resp, err := g.gen.GenerateContent(ctx, g.imageModel,
		userContent(src.part(), genai.NewPartFromText(instruction)),
		&genai.GenerateContentConfig{
			ResponseModalities: []string{string(genai.ModalityImage)},
		})
	if err != nil {
		log.WithError(err).Error("Failed to generate edited image")
		return Image{}, fmt.Errorf("%w: %w", ErrImageEdit, err)
	}

	img, err = firstInlineImage(resp)
	if err != nil {
		return Image{}, fmt.Errorf("%w: %w", ErrImageEdit, err)
	}
	return img, nil
}

func firstInlineImage(resp *genai.GenerateContentResponse) (Image, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return Image{}, errNoImageData
	}
	for _, part := range resp.Candidates[0].Content.Parts {
		if part == nil || part.InlineData == nil || len(part.InlineData.Data) == 0 {
			continue
		}
		mimeType := part.InlineData.MIMEType
		if mimeType == "" {
			mimeType = mimetype.Detect(part.InlineData.Data).String()
		}
		return Image{Data: part.InlineData.Data, MIMEType: mimeType}, nil
	}
	return Image{}, errNoImageData
}

// LoadImage resolves an image reference to its bytes. Data URLs are decoded locally,
// anything else is fetched over HTTP with ctx.
func (g *Gateway) LoadImage(ctx context.Context, ref string) (Image, error) {
	if utils.IsDataURL(ref) {
		data, mimeType, err := utils.DecodeDataURL(ref)
		if err != nil {
			return Image{}, err
		}
		return Image{Data: data, MIMEType: mimeType}, nil
	}

	if !strings.HasPrefix(ref, "http://") && !strings.HasPrefix(ref, "https://") {
		return Image{}, fmt.Errorf("unsupported image reference %q", truncate(ref, 40))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return Image{}, fmt.Errorf("failed to build image request: %w", err)
	}
	resp, err := g.httpClient.Do(req)
	if err != nil {
		return Image{}, fmt.Errorf("failed to fetch image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Image{}, fmt.Errorf("failed to fetch image: HTTP error status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxSourceImageBytes))
	if err != nil {
		return Image{}, fmt.Errorf("failed to read image body: %w", err)
	}
	if len(data) == 0 {
		return Image{}, fmt.Errorf("image at %s is empty", ref)
	}

	mimeType, _, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if err != nil || !strings.HasPrefix(mimeType, "image/") {
		mimeType = mimetype.Detect(data).String()
	}
	return Image{Data: data, MIMEType: mimeType}, nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
