package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/arnavshah/compliance-api-go/pkg/apierror"
	"github.com/arnavshah/compliance-api-go/pkg/compliance"
	"github.com/arnavshah/compliance-api-go/pkg/database"
	"github.com/arnavshah/compliance-api-go/pkg/fetcher"
	"github.com/arnavshah/compliance-api-go/pkg/models"
	"github.com/arnavshah/compliance-api-go/pkg/presentation"
	"github.com/arnavshah/compliance-api-go/pkg/report"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
)

var validate = validator.New()

// complianceQuery is the query string shared by the compliance endpoints
type complianceQuery struct {
	Date string `form:"date" validate:"omitempty,datetime=2006-01-02"`
	From string `form:"from" validate:"omitempty,datetime=2006-01-02"`
	To   string `form:"to" validate:"omitempty,datetime=2006-01-02"`
	Zone string `form:"zone" validate:"omitempty,max=64"`
	Unit string `form:"unit" validate:"omitempty,max=64"`

	// Session names the client view issuing the request; a newer request in
	// the same session supersedes the older one
	Session string `form:"session" validate:"omitempty,max=64,printascii"`
}

const sessionHeader = "X-Client-Session"

func (q complianceQuery) fetchQuery() fetcher.Query {
	return fetcher.Query{Zone: q.Zone, Unit: q.Unit}
}

func validationFields(err error) map[string]string {
	fields := map[string]string{}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			fields[fe.Field()] = "failed on " + fe.Tag()
		}
		return fields
	}
	fields["query"] = err.Error()
	return fields
}

// bindQuery parses and validates the query string, answering 400 on failure
func bindQuery(c *gin.Context) (complianceQuery, bool) {
	var q complianceQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, apierror.NewValidation(validationFields(err)))
		return q, false
	}
	if q.Session == "" {
		q.Session = c.GetHeader(sessionHeader)
	}
	if err := validate.Struct(q); err != nil {
		c.JSON(http.StatusBadRequest, apierror.NewValidation(validationFields(err)))
		return q, false
	}
	return q, true
}

// singleDay resolves the date parameter, defaulting to today
func (h *Handler) singleDay(c *gin.Context, q complianceQuery) (models.DateRange, bool) {
	date := q.Date
	if date == "" {
		date = time.Now().Format(models.DateLayout)
	}
	rng, err := compliance.ParseRange(date, date, h.MaxRangeDays)
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.NewValidation(map[string]string{"date": err.Error()}))
		return rng, false
	}
	return rng, true
}

// span resolves from/to, defaulting to a single day
func (h *Handler) span(c *gin.Context, q complianceQuery) (models.DateRange, bool) {
	from, to := q.From, q.To
	if from == "" {
		from = time.Now().Format(models.DateLayout)
	}
	if to == "" {
		to = from
	}
	rng, err := compliance.ParseRange(from, to, h.MaxRangeDays)
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.NewValidation(map[string]string{"range": err.Error()}))
		return rng, false
	}
	return rng, true
}

// load fetches the range. With a session, a newer request of the same
// caller, endpoint and session supersedes this one.
func (h *Handler) load(c *gin.Context, rng models.DateRange, q complianceQuery) (fetcher.RangeResult, bool) {
	var key string
	if q.Session != "" {
		key = c.GetString("userID") + ":" + c.FullPath() + ":" + q.Session
	}
	res, err := h.Loader.Load(c.Request.Context(), key, rng, q.fetchQuery())
	switch {
	case err == nil:
		return res, true
	case errors.Is(err, fetcher.ErrSuperseded):
		c.JSON(http.StatusConflict, apierror.New("request superseded by a newer one"))
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		c.JSON(http.StatusGatewayTimeout, apierror.New("report fetch cancelled"))
	default:
		log.Error().Err(err).Str("request_id", c.GetString(RequestIDKey)).Msg("report load failed")
		c.JSON(http.StatusBadGateway, apierror.New("could not load reports"))
	}
	return res, false
}

func (h *Handler) adapter(ctx context.Context, owner string) *presentation.Adapter {
	settings, err := database.LoadSettings(ctx, h.DB, owner)
	if err != nil {
		log.Warn().Err(err).Str("owner", owner).Msg("settings unavailable, using defaults")
		settings = models.DefaultViewSettings()
	}
	return presentation.NewAdapter(settings)
}

func (h *Handler) calculator(ctx context.Context) *compliance.Calculator {
	overrides, err := database.TargetOverrides(ctx, h.DB)
	if err != nil {
		log.Warn().Err(err).Msg("target overrides unavailable")
	}
	return compliance.NewCalculator(h.Targets.With(overrides))
}

func countPosts(records []models.ShiftRecord) int {
	seen := map[string]struct{}{}
	for _, r := range records {
		seen[r.PostID] = struct{}{}
	}
	return len(seen)
}

// UnitCoverage returns the slot coverage of every business unit for a date
func (h *Handler) UnitCoverage(c *gin.Context) {
	q, ok := bindQuery(c)
	if !ok {
		return
	}
	rng, ok := h.singleDay(c, q)
	if !ok {
		return
	}
	res, ok := h.load(c, rng, q)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	units, err := database.Units(ctx, h.DB, q.Zone)
	if err != nil {
		c.JSON(http.StatusInternalServerError, apierror.New("could not load business units"))
		return
	}
	if q.Unit != "" {
		units = filterUnits(units, q.Unit)
	}

	records := res.Records()
	covs := compliance.UnitCoverages(units, records)
	h.RecordUsage(c, countPosts(records), len(records))

	c.JSON(http.StatusOK, gin.H{
		"date":         rng.From.Format(models.DateLayout),
		"units":        covs,
		"chart":        h.adapter(ctx, c.GetString("userID")).UnitSeries(covs),
		"failed_dates": res.Failed,
	})
}

func filterUnits(units []models.BusinessUnit, id string) []models.BusinessUnit {
	for _, u := range units {
		if u.ID == id {
			return []models.BusinessUnit{u}
		}
	}
	return nil
}

// ZoneCompliance returns strict per-post compliance over a date range
func (h *Handler) ZoneCompliance(c *gin.Context) {
	q, ok := bindQuery(c)
	if !ok {
		return
	}
	rng, ok := h.span(c, q)
	if !ok {
		return
	}
	res, ok := h.load(c, rng, q)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	records := res.Records()
	z := h.calculator(ctx).Zone(records, rng)
	z.FailedDates = res.Failed
	h.RecordUsage(c, len(z.Posts), len(records))

	a := h.adapter(ctx, c.GetString("userID"))
	c.JSON(http.StatusOK, gin.H{
		"compliance":    z,
		"chart":         a.PostSeries(z.Posts),
		"non_compliant": a.NonCompliantDays(z),
		"view_settings": a.Settings(),
	})
}

// Personnel returns the list/grid cards of every shift slot for a date
func (h *Handler) Personnel(c *gin.Context) {
	q, ok := bindQuery(c)
	if !ok {
		return
	}
	rng, ok := h.singleDay(c, q)
	if !ok {
		return
	}
	res, ok := h.load(c, rng, q)
	if !ok {
		return
	}

	records := res.Records()
	h.RecordUsage(c, countPosts(records), len(records))

	a := h.adapter(c.Request.Context(), c.GetString("userID"))
	c.JSON(http.StatusOK, gin.H{
		"date":         rng.From.Format(models.DateLayout),
		"view_mode":    a.Settings().ViewMode,
		"cards":        a.Personnel(records),
		"failed_dates": res.Failed,
	})
}

// Report returns the compliance workbook of a date range
func (h *Handler) Report(c *gin.Context) {
	q, ok := bindQuery(c)
	if !ok {
		return
	}
	rng, ok := h.span(c, q)
	if !ok {
		return
	}
	res, ok := h.load(c, rng, q)
	if !ok {
		return
	}

	records := res.Records()
	z := h.calculator(c.Request.Context()).Zone(records, rng)
	z.FailedDates = res.Failed

	data, err := report.Build(q.Zone, z, records)
	if err != nil {
		log.Error().Err(err).Msg("report build failed")
		c.JSON(http.StatusInternalServerError, apierror.New("could not build report"))
		return
	}
	h.RecordUsage(c, len(z.Posts), len(records))

	c.Header("Content-Disposition", `attachment; filename="`+report.Filename(q.Zone, z)+`"`)
	c.Data(http.StatusOK, report.ContentType, data)
}
