package handler

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/iliyamo/theatre-box-office/internal/apperror"
	"github.com/iliyamo/theatre-box-office/internal/logger"
	"github.com/iliyamo/theatre-box-office/internal/model"
	"github.com/iliyamo/theatre-box-office/internal/repository"
	"github.com/iliyamo/theatre-box-office/internal/storage"
)

// PlayHandler serves plays and their poster uploads.
type PlayHandler struct {
	Plays          *repository.PlayRepo
	Genres         *repository.GenreRepo
	Actors         *repository.ActorRepo
	Media          storage.Storage
	UploadMaxBytes int64
	Log            *zap.Logger
}

func NewPlayHandler(plays *repository.PlayRepo, genres *repository.GenreRepo, actors *repository.ActorRepo,
	media storage.Storage, uploadMaxBytes int64, log *zap.Logger) *PlayHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &PlayHandler{
		Plays:          plays,
		Genres:         genres,
		Actors:         actors,
		Media:          media,
		UploadMaxBytes: uploadMaxBytes,
		Log:            log,
	}
}

type playRequest struct {
	Title       string   `json:"title" validate:"required,max=255"`
	Description string   `json:"description"`
	Genres      []uint64 `json:"genres"`
	Actors      []uint64 `json:"actors"`
}

// List supports ?title= (case-insensitive substring) and ?genres= / ?actors=
// with comma-separated ids. All given filters must match.
func (h *PlayHandler) List(c echo.Context) error {
	p, err := pageParams(c)
	if err != nil {
		return err
	}
	f := repository.PlayFilter{Title: strings.TrimSpace(c.QueryParam("title"))}
	if f.GenreIDs, err = parseIDList(c.QueryParam("genres"), "genres"); err != nil {
		return err
	}
	if f.ActorIDs, err = parseIDList(c.QueryParam("actors"), "actors"); err != nil {
		return err
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	plays, total, err := h.Plays.List(ctx, f, p.repo())
	if err != nil {
		return repoErr(err, "play", "title")
	}
	out := make([]PlayListItem, 0, len(plays))
	for _, pl := range plays {
		out = append(out, newPlayListItem(pl, h.Media))
	}
	return c.JSON(http.StatusOK, newPage(p, total, out))
}

func (h *PlayHandler) Get(c echo.Context) error {
	id, err := parseID(c, "play")
	if err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	pl, err := h.Plays.GetByID(ctx, id)
	if err != nil {
		return repoErr(err, "play", "title")
	}
	return c.JSON(http.StatusOK, newPlayDetail(*pl, h.Media))
}

func (h *PlayHandler) Create(c echo.Context) error {
	var req playRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.checkLinks(ctx, req); err != nil {
		return err
	}
	pl := model.Play{Title: req.Title, Description: req.Description}
	if err := h.Plays.Create(ctx, &pl, orEmpty(req.Genres), orEmpty(req.Actors)); err != nil {
		return repoErr(err, "play", "title")
	}
	return h.respondDetail(ctx, c, pl.ID, http.StatusCreated)
}

// Update serves PUT and PATCH. With PATCH, genres and actors missing from
// the body keep their current links.
func (h *PlayHandler) Update(c echo.Context) error {
	id, err := parseID(c, "play")
	if err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	cur, err := h.Plays.GetByID(ctx, id)
	if err != nil {
		return repoErr(err, "play", "title")
	}
	var req playRequest
	if c.Request().Method == http.MethodPatch {
		req = playRequest{Title: cur.Title, Description: cur.Description}
	}
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := h.checkLinks(ctx, req); err != nil {
		return err
	}

	genres, actors := req.Genres, req.Actors
	if c.Request().Method == http.MethodPut {
		genres, actors = orEmpty(genres), orEmpty(actors)
	}
	pl := model.Play{ID: id, Title: req.Title, Description: req.Description}
	if err := h.Plays.Update(ctx, &pl, genres, actors); err != nil {
		return repoErr(err, "play", "title")
	}
	return h.respondDetail(ctx, c, id, http.StatusOK)
}

func (h *PlayHandler) Delete(c echo.Context) error {
	id, err := parseID(c, "play")
	if err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	pl, err := h.Plays.GetByID(ctx, id)
	if err != nil {
		return repoErr(err, "play", "title")
	}
	if err := h.Plays.Delete(ctx, id); err != nil {
		return repoErr(err, "play", "title")
	}
	if pl.Image != nil {
		h.removeImage(c, *pl.Image)
	}
	return noContent(c)
}

// UploadImage stores the multipart file "image" as the play's poster and
// removes the previous one. Only JPEG, PNG and GIF images are accepted.
func (h *PlayHandler) UploadImage(c echo.Context) error {
	id, err := parseID(c, "play")
	if err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	pl, err := h.Plays.GetByID(ctx, id)
	if err != nil {
		return repoErr(err, "play", "title")
	}

	fh, err := c.FormFile("image")
	if err != nil {
		return apperror.Field("image", "No file was submitted.")
	}
	if h.UploadMaxBytes > 0 && fh.Size > h.UploadMaxBytes {
		return apperror.Field("image", fmt.Sprintf("Ensure this file is no larger than %d bytes.", h.UploadMaxBytes))
	}
	f, err := fh.Open()
	if err != nil {
		return apperror.Internal("open upload", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return apperror.Internal("read upload", err)
	}
	_, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return apperror.Field("image",
			"Upload a valid image. The file you uploaded was either not an image or a corrupted image.")
	}

	ext := format
	if format == "jpeg" {
		ext = "jpg"
	}
	key := fmt.Sprintf("uploads/plays/%s-%s.%s", slugify(pl.Title), uuid.NewString(), ext)
	if err := h.Media.Store(ctx, key, bytes.NewReader(data), "image/"+format); err != nil {
		return apperror.Internal("store image", err)
	}
	if err := h.Plays.SetImage(ctx, id, key); err != nil {
		h.removeImage(c, key)
		return repoErr(err, "play", "title")
	}
	if pl.Image != nil && *pl.Image != key {
		h.removeImage(c, *pl.Image)
	}

	return c.JSON(http.StatusOK, echo.Map{"id": id, "image": h.Media.URL(key)})
}

func (h *PlayHandler) respondDetail(ctx context.Context, c echo.Context, id uint64, status int) error {
	pl, err := h.Plays.GetByID(ctx, id)
	if err != nil {
		return repoErr(err, "play", "title")
	}
	return c.JSON(status, newPlayDetail(*pl, h.Media))
}

// checkLinks reports unknown genre and actor ids as field errors.
func (h *PlayHandler) checkLinks(ctx context.Context, req playRequest) error {
	fields := map[string]string{}
	if len(req.Genres) > 0 {
		missing, err := h.Genres.Missing(ctx, req.Genres)
		if err != nil {
			return apperror.Internal("check genres", err)
		}
		if len(missing) > 0 {
			fields["genres"] = invalidPK(missing[0])
		}
	}
	if len(req.Actors) > 0 {
		missing, err := h.Actors.Missing(ctx, req.Actors)
		if err != nil {
			return apperror.Internal("check actors", err)
		}
		if len(missing) > 0 {
			fields["actors"] = invalidPK(missing[0])
		}
	}
	if len(fields) > 0 {
		return apperror.Validation(fields)
	}
	return nil
}

func (h *PlayHandler) removeImage(c echo.Context, key string) {
	ctx := context.WithoutCancel(c.Request().Context())
	if err := h.Media.Delete(ctx, key); err != nil {
		logger.FromContext(ctx, h.Log).Warn("delete play image failed", zap.String("key", key), zap.Error(err))
	}
}

func invalidPK(id uint64) string {
	return fmt.Sprintf("invalid pk \"%d\" - object does not exist", id)
}

func orEmpty(ids []uint64) []uint64 {
	if ids == nil {
		return []uint64{}
	}
	return ids
}

// slugify turns a title into a lower-case ASCII slug such as
// "romeo-and-juliet".
func slugify(s string) string {
	stripMarks := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	if folded, _, err := transform.String(stripMarks, s); err == nil {
		s = folded
	}
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(r)
			dash = false
		case b.Len() > 0 && !dash:
			b.WriteByte('-')
			dash = true
		}
	}
	slug := strings.TrimSuffix(b.String(), "-")
	if len(slug) > 50 {
		slug = strings.TrimSuffix(slug[:50], "-")
	}
	if slug == "" {
		return "play"
	}
	return slug
}
