package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path"
	"strings"

	"github.com/go-chi/chi/v5"

	"contentstudio/internal/domain"
	"contentstudio/pkg/zip"
)

var bundleMIME = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".wav":  "audio/wav",
	".mp3":  "audio/mpeg",
	".mp4":  "video/mp4",
	".json": "application/json",
}

// ContentBundle streams a zip with the script and every generated asset.
// Assets held in the local file store are embedded; remote ones are
// written as .url link files.
func (a *App) ContentBundle(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	rec, err := a.Store.Get(r.Context(), id)
	if err != nil {
		a.fail(w, r, err)
		return
	}

	var assets []zip.Asset
	if rec.GeneratedContent != nil {
		data, err := json.MarshalIndent(rec.GeneratedContent, "", "  ")
		if err != nil {
			a.fail(w, r, fmt.Errorf("encode script: %w", err))
			return
		}
		assets = append(assets, zip.Asset{Filename: "script.json", MIME: "application/json", Data: data, Modified: rec.UpdatedAt})
	}
	for _, item := range []struct {
		name string
		url  *string
	}{
		{"image", rec.GeneratedPicture},
		{"voice", rec.GeneratedVoice},
		{"music", rec.GeneratedMusic},
		{"video", rec.GeneratedVideo},
	} {
		if item.url == nil || *item.url == "" {
			continue
		}
		asset := a.bundleAsset(r.Context(), item.name, *item.url)
		asset.Modified = rec.UpdatedAt
		assets = append(assets, asset)
	}
	if len(assets) == 0 {
		a.error(w, http.StatusConflict, "not_ready", "content has no generated assets yet")
		return
	}

	archive, err := zip.ArchiveAssets(assets)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=content-%s.zip", rec.ID))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(archive)
}

func (a *App) bundleAsset(ctx context.Context, name, url string) zip.Asset {
	if key, ok := a.storageKey(url); ok && a.Files != nil {
		data, err := a.Files.Read(ctx, key)
		if err == nil {
			ext := path.Ext(key)
			return zip.Asset{Filename: name + ext, MIME: bundleMIME[ext], Data: data}
		}
		if !errors.Is(err, domain.ErrNotFound) {
			a.Logger.Warn().Err(err).Str("key", key).Msg("bundle: asset unreadable, linking instead")
		}
	}
	return zip.Asset{Filename: name + ".url", MIME: "text/plain", Data: []byte(url + "\n")}
}

// storageKey recovers the file store key from a URL served under /static.
func (a *App) storageKey(url string) (string, bool) {
	prefixes := []string{"/static/"}
	if base := strings.TrimRight(a.StaticBaseURL, "/"); base != "" {
		prefixes = append([]string{base + "/"}, prefixes...)
	}
	for _, p := range prefixes {
		if strings.HasPrefix(url, p) {
			return strings.TrimPrefix(url, p), true
		}
	}
	return "", false
}
