package handlers

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"thumbgen/internal/domain"
	"thumbgen/internal/imagegen"
	"thumbgen/internal/providers/prompt"
	"thumbgen/internal/storage"
	"thumbgen/pkg/zip"
)

const defaultMaxUploadBytes = 10 << 20

type generateResponse struct {
	ID        string   `json:"id,omitempty"`
	Images    []string `json:"images"`
	Count     int      `json:"count"`
	Requested int      `json:"requested"`
	Mode      string   `json:"mode"`
	Prompt    string   `json:"prompt"`
	Enhanced  bool     `json:"enhanced"`
}

// GenerateThumbnails composes a prompt from the form, optionally enhances it,
// fans out to the image providers and uploads whatever came back.
func (a *App) GenerateThumbnails(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	log := a.logger(r)

	maxBytes := int64(defaultMaxUploadBytes)
	if a.Config != nil && a.Config.MaxUploadBytes > 0 {
		maxBytes = a.Config.MaxUploadBytes
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	if err := r.ParseMultipartForm(maxBytes); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			a.error(w, http.StatusRequestEntityTooLarge, "too_large", "upload exceeds size limit")
			return
		}
		a.error(w, http.StatusBadRequest, "bad_request", "invalid form payload")
		return
	}

	reference, refInfo, err := readReference(r)
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	rawMode := r.FormValue("mode")
	mode, ok := domain.ParseMode(rawMode)
	if !ok {
		a.error(w, http.StatusBadRequest, "bad_request", "mode must be text-to-image or image-to-image")
		return
	}
	if strings.TrimSpace(rawMode) == "" && len(reference) > 0 {
		mode = domain.ModeImageToImage
	}
	if mode == domain.ModeTextToImage {
		reference, refInfo = nil, nil
	}

	fields := fieldsFromForm(r)
	if err := validateGeneration(mode, fields, reference); err != nil {
		code := "invalid_prompt"
		if errors.Is(err, domain.ErrInvalidReference) {
			code = "invalid_reference"
		}
		a.error(w, http.StatusBadRequest, code, err.Error())
		return
	}
	if !a.Images.Ready(mode) {
		a.error(w, http.StatusServiceUnavailable, "not_configured", "no image provider configured for "+string(mode))
		return
	}

	count := imagegen.ClampCount(r.FormValue("count"))
	composed := imagegen.Compose(fields, mode)
	finalPrompt, enhanced := composed, false
	if imagegen.ParseFlag(r.FormValue("enhance")) {
		finalPrompt, enhanced = prompt.BestEffort(r.Context(), a.Enhancer, composed, log)
	}

	images, err := a.Images.Generate(r.Context(), finalPrompt, count, reference)
	if errors.Is(err, imagegen.ErrNotConfigured) {
		a.error(w, http.StatusServiceUnavailable, "not_configured", err.Error())
		return
	}
	if err != nil {
		log.Error().Err(err).Msg("generate failed")
		a.error(w, http.StatusInternalServerError, "internal", "generation failed")
		return
	}

	res := generateResponse{
		Images:    []string{},
		Requested: count,
		Mode:      string(mode),
		Prompt:    finalPrompt,
		Enhanced:  enhanced,
	}
	if len(images) == 0 {
		log.Warn().Int("requested", count).Msg("no images produced")
		a.json(w, http.StatusOK, res)
		return
	}

	objects := lo.Map(images, func(img []byte, _ int) storage.Object {
		mime := imagegen.DetectMIME(img)
		return storage.Object{Data: img, ContentType: mime, Extension: imagegen.Extension(mime)}
	})
	urls, err := storage.UploadAll(r.Context(), a.Uploader, a.keyPrefix(), userID, objects)
	if err != nil {
		log.Error().Err(err).Int("images", len(images)).Msg("upload failed")
		a.error(w, http.StatusBadGateway, "upload_failed", "failed to store generated images")
		return
	}
	res.Images, res.Count = urls, len(urls)

	record := &domain.HistoryRecord{
		ID:             uuid.NewString(),
		UserID:         userID,
		Mode:           mode,
		OriginalPrompt: composed,
		FinalPrompt:    finalPrompt,
		Enhanced:       enhanced,
		Fields:         fields,
		Reference:      refInfo,
		RequestedCount: count,
		GeneratedCount: len(urls),
		ImageURLs:      urls,
		CreatedAt:      time.Now().UTC(),
	}
	if err := a.History.Append(r.Context(), record); err != nil {
		log.Error().Err(err).Str("history_id", record.ID).Msg("history append failed")
	} else {
		res.ID = record.ID
	}
	if strings.EqualFold(strings.TrimSpace(r.FormValue("format")), "zip") {
		a.writeArchive(w, r, res, objects)
		return
	}
	a.json(w, http.StatusOK, res)
}

// writeArchive returns the generated images as a zip download. URLs and the
// history id travel in headers.
func (a *App) writeArchive(w http.ResponseWriter, r *http.Request, res generateResponse, objects []storage.Object) {
	now := time.Now().UTC()
	files := make([]zip.File, len(objects))
	for i, obj := range objects {
		files[i] = zip.File{Name: fmt.Sprintf("thumbnail-%d%s", i+1, obj.Extension), Data: obj.Data, Modified: now}
	}
	name := "thumbnails-" + now.Format("20060102-150405") + ".zip"
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.Header().Set("X-Thumbnail-Count", strconv.Itoa(res.Count))
	if res.ID != "" {
		w.Header().Set("X-History-ID", res.ID)
	}
	w.WriteHeader(http.StatusOK)
	if err := zip.Write(w, files); err != nil {
		a.logger(r).Error().Err(err).Msg("write archive failed")
	}
}

func validateGeneration(mode domain.Mode, fields domain.PromptFields, reference []byte) error {
	switch {
	case mode == domain.ModeImageToImage && len(reference) == 0:
		return fmt.Errorf("%w: image-to-image requires an image upload", domain.ErrInvalidReference)
	case mode == domain.ModeTextToImage && strings.TrimSpace(fields.CustomPrompt) == "" && !fields.HasStructured():
		return fmt.Errorf("%w: a prompt or at least one style field is required", domain.ErrInvalidPrompt)
	}
	return nil
}

func (a *App) keyPrefix() string {
	if a.Config != nil && a.Config.StorageDriver == "s3" {
		return a.Config.S3KeyPrefix
	}
	return ""
}

func fieldsFromForm(r *http.Request) domain.PromptFields {
	value := func(keys ...string) string {
		for _, k := range keys {
			if v := strings.TrimSpace(r.FormValue(k)); v != "" {
				return v
			}
		}
		return ""
	}
	return domain.PromptFields{
		Category:       value("category"),
		Mood:           value("mood"),
		Theme:          value("theme"),
		PrimaryColor:   value("primaryColor", "primary_color"),
		IncludeText:    imagegen.ParseFlag(value("includeText", "include_text")),
		TextStyle:      value("textStyle", "text_style"),
		ThumbnailStyle: value("thumbnailStyle", "thumbnail_style"),
		CustomPrompt:   value("prompt", "customPrompt", "custom_prompt"),
	}
}

// readReference loads the optional "image" upload. A missing file is not an error.
func readReference(r *http.Request) ([]byte, *domain.ReferenceInfo, error) {
	if r.MultipartForm == nil {
		return nil, nil, nil
	}
	var header *multipart.FileHeader
	for _, key := range []string{"image", "reference"} {
		if files := r.MultipartForm.File[key]; len(files) > 0 {
			header = files[0]
			break
		}
	}
	if header == nil {
		return nil, nil, nil
	}
	f, err := header.Open()
	if err != nil {
		return nil, nil, errors.New("unreadable reference image")
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, nil, errors.New("unreadable reference image")
	}
	if len(data) == 0 {
		return nil, nil, nil
	}
	return data, &domain.ReferenceInfo{
		Filename: header.Filename,
		MIMEType: imagegen.DetectMIME(data),
		Size:     len(data),
	}, nil
}
