package media

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"contentstudio/internal/storage"
)

// Vertical 9:16 frame, scaled down to keep placeholder files small.
const (
	syntheticWidth  = 540
	syntheticHeight = 960
	sampleRate      = 8000
	maxClipSeconds  = 3
)

// SyntheticGenerator renders deterministic placeholder assets into the file
// store. It stands in for real services in development and tests.
type SyntheticGenerator struct {
	store   *storage.FileStore
	baseURL string
	logger  zerolog.Logger
}

func NewSyntheticGenerator(store *storage.FileStore, baseURL string, logger zerolog.Logger) *SyntheticGenerator {
	return &SyntheticGenerator{store: store, baseURL: strings.TrimRight(baseURL, "/"), logger: logger}
}

func (g *SyntheticGenerator) Generate(ctx context.Context, req Request) (*Asset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	seed := deterministicSeed(req.ContentID, req.Kind, req.Prompt, req.Style)

	var (
		data   []byte
		format string
		ext    string
		err    error
	)
	switch req.Kind {
	case KindImage:
		data, format, ext = renderSyntheticImage(syntheticWidth, syntheticHeight, seed), "image/png", "png"
	case KindVoice:
		data, format, ext = renderTone(seed, 220, req.Duration), "audio/wav", "wav"
	case KindMusic:
		data, format, ext = renderTone(seed, 440, req.Duration), "audio/wav", "wav"
	case KindVideo:
		data, err = renderVideoManifest(seed, req)
		format, ext = "application/json", "json"
	default:
		return nil, fmt.Errorf("synthetic: unsupported kind %q", req.Kind)
	}
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("synthetic: empty %s asset", req.Kind)
	}

	key := syntheticStorageKey(req.ContentID, req.Kind, seed, ext)
	if g.store != nil {
		if key, err = g.store.Write(ctx, key, data); err != nil {
			return nil, fmt.Errorf("synthetic: persist %s: %w", req.Kind, err)
		}
	}

	g.logger.Debug().
		Str("content_id", req.ContentID).
		Str("kind", string(req.Kind)).
		Str("storage_key", key).
		Int("bytes", len(data)).
		Msg("synthetic asset generated")

	return &Asset{
		URL:        g.assetURL(key),
		StorageKey: key,
		Format:     format,
		Bytes:      len(data),
	}, nil
}

func (g *SyntheticGenerator) assetURL(storageKey string) string {
	if g.baseURL == "" {
		return "/static/" + strings.TrimLeft(storageKey, "/")
	}
	return fmt.Sprintf("%s/%s", g.baseURL, strings.TrimLeft(storageKey, "/"))
}

// SyntheticStoragePrefix is the directory holding a content id's assets.
func SyntheticStoragePrefix(contentID string) string {
	return "generated/" + contentID
}

func syntheticStorageKey(contentID string, kind Kind, seed, ext string) string {
	return fmt.Sprintf("%s/%s-%s.%s", SyntheticStoragePrefix(contentID), kind, seed, ext)
}

func renderSyntheticImage(width, height int, seed string) []byte {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	base := colorFromSeed(seed, 0)
	accent := colorFromSeed(seed, 1)
	draw.Draw(img, img.Bounds(), &image.Uniform{base}, image.Point{}, draw.Src)

	stripeHeight := max(32, height/12)
	for y := 0; y < height; y += stripeHeight * 2 {
		stripe := image.Rect(0, y, width, min(height, y+stripeHeight))
		draw.Draw(img, stripe, &image.Uniform{accent}, image.Point{}, draw.Over)
	}

	diagonal := colorFromSeed(seed, 2)
	for x := 0; x < max(width, height); x += max(16, width/32) {
		for y := 0; y < height; y++ {
			xx := x + y
			if xx >= width {
				break
			}
			img.Set(xx, y, diagonal)
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil
	}
	return buf.Bytes()
}

// renderTone writes an 8-bit mono PCM WAV clip whose pitch is derived from seed.
func renderTone(seed string, baseHz float64, seconds int) []byte {
	if seconds <= 0 || seconds > maxClipSeconds {
		seconds = maxClipSeconds
	}
	n := sampleRate * seconds
	hz := baseHz + float64(mustParseHexByte(seed[:2]))

	var buf bytes.Buffer
	buf.WriteString("RIFF")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(36+n))
	buf.WriteString("WAVEfmt ")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(16))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(1))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(1))
	_ = binary.Write(&buf, binary.LittleEndian, uint32(sampleRate))
	_ = binary.Write(&buf, binary.LittleEndian, uint32(sampleRate))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(1))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(8))
	buf.WriteString("data")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(n))
	for i := 0; i < n; i++ {
		v := math.Sin(2 * math.Pi * hz * float64(i) / sampleRate)
		buf.WriteByte(byte(128 + 60*v))
	}
	return buf.Bytes()
}

func renderVideoManifest(seed string, req Request) ([]byte, error) {
	manifest := map[string]any{
		"placeholder": true,
		"seed":        seed,
		"title":       req.Title,
		"duration":    req.Duration,
		"inputs":      req.Inputs,
	}
	if req.Script != nil {
		manifest["scenes"] = req.Script.AllScenes()
	}
	return json.MarshalIndent(manifest, "", "  ")
}

func colorFromSeed(seed string, shift int) color.RGBA {
	if seed == "" {
		seed = "000000"
	}
	doubled := seed + seed
	start := (shift * 6) % len(seed)
	segment := doubled[start : start+6]
	return color.RGBA{
		R: mustParseHexByte(segment[0:2]),
		G: mustParseHexByte(segment[2:4]),
		B: mustParseHexByte(segment[4:6]),
		A: 255,
	}
}

func mustParseHexByte(s string) uint8 {
	v, err := strconv.ParseUint(s, 16, 8)
	if err != nil {
		return 0
	}
	return uint8(v)
}

func deterministicSeed(parts ...any) string {
	hasher := sha256.New()
	for _, part := range parts {
		hasher.Write([]byte(fmt.Sprintf("%v", part)))
		hasher.Write([]byte{'|'})
	}
	return hex.EncodeToString(hasher.Sum(nil))[:16]
}

var _ Generator = (*SyntheticGenerator)(nil)
