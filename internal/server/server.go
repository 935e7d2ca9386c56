package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/nycdatalab/tlcaudit/internal/aggregate"
	"github.com/nycdatalab/tlcaudit/internal/cache"
	"github.com/nycdatalab/tlcaudit/internal/crawler"
	"github.com/nycdatalab/tlcaudit/internal/impute"
	"github.com/nycdatalab/tlcaudit/internal/models"
	"github.com/nycdatalab/tlcaudit/internal/report"
)

// Server is the dashboard HTTP surface: a handful of blocking single-user
// actions over the pipeline. Downloads and report generation run to
// completion inside the request.
type Server struct {
	cfg      *models.Config
	store    *cache.Store
	fetcher  *crawler.Fetcher
	imputer  *impute.Imputer
	engine   *aggregate.Engine
	reports  *report.Builder
	uploader report.Uploader
}

func New(cfg *models.Config, store *cache.Store, fetcher *crawler.Fetcher, imputer *impute.Imputer,
	engine *aggregate.Engine, reports *report.Builder, uploader report.Uploader) *Server {
	return &Server{
		cfg:      cfg,
		store:    store,
		fetcher:  fetcher,
		imputer:  imputer,
		engine:   engine,
		reports:  reports,
		uploader: uploader,
	}
}

func (s *Server) Router() *gin.Engine {
	r := gin.Default()

	api := r.Group("/api")
	{
		api.GET("/years", s.handleYears)
		api.POST("/download/:year", s.handleDownload)
		api.POST("/cache/:year/invalidate", s.handleInvalidate)
		api.POST("/impute/:year/:month", s.handleImpute)

		api.GET("/border-effect", s.handleBorderEffect)
		api.GET("/velocity", s.handleVelocity)
		api.GET("/tips", s.handleTips)
		api.GET("/elasticity", s.handleElasticity)
		api.GET("/audit", s.handleAudit)
		api.GET("/yellow-vs-green", s.handleYellowVsGreen)

		api.POST("/report", s.handleReportGenerate)
		api.GET("/report/download", s.handleReportDownload)
	}
	return r
}

func (s *Server) Run() error {
	return s.Router().Run(s.cfg.Server.Addr)
}

func (s *Server) handleYears(c *gin.Context) {
	type yearState struct {
		Year    int                 `json:"year"`
		Entries []models.CacheEntry `json:"entries"`
	}
	out := make([]yearState, 0, len(s.cfg.SupportedYears))
	for _, y := range s.cfg.SupportedYears {
		out = append(out, yearState{Year: y, Entries: s.store.List(y)})
	}
	c.JSON(http.StatusOK, gin.H{"years": out})
}

func (s *Server) handleDownload(c *gin.Context) {
	year, ok := s.yearParam(c)
	if !ok {
		return
	}
	classes, err := s.cfg.Classes()
	if err != nil {
		abortWith(c, err)
		return
	}
	res, err := s.fetcher.DownloadYear(c.Request.Context(), year, classes)
	if err != nil {
		abortWith(c, err)
		return
	}
	status := http.StatusOK
	if len(res.Failed) > 0 {
		// Failed months are reported, not fatal: the year is partial.
		status = http.StatusPartialContent
	}
	c.JSON(status, res)
}

func (s *Server) handleInvalidate(c *gin.Context) {
	year, ok := s.yearParam(c)
	if !ok {
		return
	}
	if err := s.store.Invalidate(year); err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"invalidated": year})
}

func (s *Server) handleImpute(c *gin.Context) {
	year, ok := s.yearParam(c)
	if !ok {
		return
	}
	month, err := strconv.Atoi(c.Param("month"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid month"})
		return
	}
	entries, err := s.imputer.Impute(year, month)
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"imputed": entries})
}

func (s *Server) handleBorderEffect(c *gin.Context) {
	from, to, ok := s.rangeParams(c)
	if !ok {
		return
	}
	res, err := s.engine.BorderEffect(c.Request.Context(), from, to)
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"rows":              res.Table.Maps(),
		"synthetic_periods": res.SyntheticPeriods(),
	})
}

func (s *Server) handleVelocity(c *gin.Context) {
	from, to, ok := s.rangeParams(c)
	if !ok {
		return
	}
	classes, err := s.cfg.Classes()
	if err != nil {
		abortWith(c, err)
		return
	}
	cmp, err := s.engine.CompareVelocity(from, to, classes)
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, cmp)
}

func (s *Server) handleTips(c *gin.Context) {
	year, ok := s.yearQuery(c)
	if !ok {
		return
	}
	res, err := s.engine.TipCrowdingOut(c.Request.Context(), year)
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"rows":              res.Table.Maps(),
		"correlation":       res.Correlation,
		"synthetic_periods": res.SyntheticPeriods(),
	})
}

func (s *Server) handleElasticity(c *gin.Context) {
	year, ok := s.yearQuery(c)
	if !ok {
		return
	}
	res, err := s.engine.Aggregate(c.Request.Context(), aggregate.Request{
		Periods:   []aggregate.Period{aggregate.FullYear(year)},
		Statistic: aggregate.Elasticity,
		Dimension: aggregate.ByDay,
		Value:     aggregate.TripCount,
	})
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"elasticity":        res.Elasticity,
		"daily":             res.Table.Maps(),
		"synthetic_periods": res.SyntheticPeriods(),
	})
}

func (s *Server) handleAudit(c *gin.Context) {
	year, ok := s.yearQuery(c)
	if !ok {
		return
	}
	res, err := s.engine.LeakageAudit(year, 3)
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"compliance_rate": res.ComplianceRate,
		"total_liable":    res.TotalLiable,
		"total_paid":      res.TotalPaid,
		"top_missing":     res.TopMissing.Maps(),
	})
}

func (s *Server) handleYellowVsGreen(c *gin.Context) {
	from, to, ok := s.rangeParams(c)
	if !ok {
		return
	}
	rows, sources, err := s.engine.YellowVsGreen(from, to)
	if err != nil {
		abortWith(c, err)
		return
	}
	var synthetic []string
	for _, src := range sources {
		if src.Synthetic {
			synthetic = append(synthetic, src.PeriodLabel())
		}
	}
	c.JSON(http.StatusOK, gin.H{"rows": rows, "synthetic_periods": synthetic})
}

func (s *Server) handleReportGenerate(c *gin.Context) {
	year, ok := s.yearQuery(c)
	if !ok {
		return
	}
	path, err := s.reports.Generate(c.Request.Context(), year, s.uploader)
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"path": path})
}

func (s *Server) handleReportDownload(c *gin.Context) {
	c.FileAttachment(s.cfg.Report.OutputFile, "audit_report.pdf")
}

func (s *Server) yearParam(c *gin.Context) (int, bool) {
	year, err := strconv.Atoi(c.Param("year"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid year"})
		return 0, false
	}
	return year, true
}

func (s *Server) yearQuery(c *gin.Context) (int, bool) {
	year, err := strconv.Atoi(c.DefaultQuery("year", strconv.Itoa(s.defaultYear())))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid year"})
		return 0, false
	}
	return year, true
}

func (s *Server) rangeParams(c *gin.Context) (int, int, bool) {
	from, err := strconv.Atoi(c.DefaultQuery("from", strconv.Itoa(s.defaultYear()-1)))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid from year"})
		return 0, 0, false
	}
	to, err := strconv.Atoi(c.DefaultQuery("to", strconv.Itoa(s.defaultYear())))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid to year"})
		return 0, 0, false
	}
	return from, to, true
}

func (s *Server) defaultYear() int {
	if n := len(s.cfg.SupportedYears); n > 0 {
		return s.cfg.SupportedYears[n-1]
	}
	return 2025
}

// abortWith maps the pipeline's error kinds onto HTTP statuses; every
// failure surfaces the offending period in the body.
func abortWith(c *gin.Context, err error) {
	var cfgErr *models.ConfigurationError
	var reqErr *models.RequestError
	var missErr *models.DataMissingError
	var fetchErr *models.FetchError

	switch {
	case errors.As(err, &cfgErr), errors.As(err, &reqErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.As(err, &missErr):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.As(err, &fetchErr):
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
