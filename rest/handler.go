package rest

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"thai-search-proxy/domain"
	"thai-search-proxy/logger"
	"thai-search-proxy/usecase"
)

// Handler exposes the proxy pipeline over HTTP. It binds and validates the
// transport shape only; semantic validation lives in the usecases.
type Handler struct {
	search    *usecase.SearchProxyUsecase
	batch     *usecase.BatchSearchUsecase
	tokenize  *usecase.TokenizeTextUsecase
	compounds *usecase.ManageCompoundsUsecase
	health    *usecase.HealthUsecase
}

func NewHandler(
	search *usecase.SearchProxyUsecase,
	batch *usecase.BatchSearchUsecase,
	tokenize *usecase.TokenizeTextUsecase,
	compounds *usecase.ManageCompoundsUsecase,
	health *usecase.HealthUsecase,
) *Handler {
	return &Handler{
		search:    search,
		batch:     batch,
		tokenize:  tokenize,
		compounds: compounds,
		health:    health,
	}
}

// Register wires all routes onto the echo instance.
func (h *Handler) Register(e *echo.Echo) {
	v1 := e.Group("/api/v1")
	v1.POST("/search", h.Search)
	v1.POST("/batch-search", h.BatchSearch)
	v1.POST("/tokenize", h.Tokenize)
	v1.POST("/tokenize/compound", h.TokenizeCompound)
	v1.GET("/compounds", h.ListCompounds)
	v1.POST("/compounds", h.AddCompound)
	v1.PUT("/compounds/:surface", h.UpdateCompound)
	v1.DELETE("/compounds/:surface", h.RemoveCompound)

	e.GET("/health", h.Health)
	e.GET("/health/detailed", h.HealthDetailed)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}

type searchRequest struct {
	Query                   string   `json:"query"`
	IndexName               string   `json:"index_name"`
	Limit                   int      `json:"limit"`
	Offset                  int      `json:"offset"`
	Filters                 []string `json:"filters"`
	Sort                    []string `json:"sort"`
	IncludeTokenizationInfo bool     `json:"include_tokenization_info"`
	// include_tokenization is accepted as an alias for include_tokenization_info
	IncludeTokenization bool `json:"include_tokenization"`
}

func (h *Handler) Search(c echo.Context) error {
	var req searchRequest
	if err := c.Bind(&req); err != nil {
		return writeError(c, domain.NewProxyError(domain.KindInvalidInput, "Search", "invalid request body"))
	}

	ctx := logger.WithQuery(c.Request().Context(), req.Query)
	resp, err := h.search.Search(ctx, usecase.SearchRequest{
		Query:               req.Query,
		IndexName:           req.IndexName,
		Limit:               req.Limit,
		Offset:              req.Offset,
		Filters:             req.Filters,
		Sort:                req.Sort,
		IncludeTokenization: req.IncludeTokenizationInfo || req.IncludeTokenization,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, resp)
}

type batchSearchRequest struct {
	Queries   []string `json:"queries"`
	IndexName string   `json:"index_name"`
	Limit     int      `json:"limit"`
	Offset    int      `json:"offset"`
	Filters   []string `json:"filters"`
	Sort      []string `json:"sort"`
}

type batchSearchResponse struct {
	Results []usecase.BatchSearchItem `json:"results"`
}

func (h *Handler) BatchSearch(c echo.Context) error {
	var req batchSearchRequest
	if err := c.Bind(&req); err != nil {
		return writeError(c, domain.NewProxyError(domain.KindInvalidInput, "BatchSearch", "invalid request body"))
	}

	items, err := h.batch.Execute(c.Request().Context(), usecase.BatchSearchRequest{
		Queries:   req.Queries,
		IndexName: req.IndexName,
		Limit:     req.Limit,
		Offset:    req.Offset,
		Filters:   req.Filters,
		Sort:      req.Sort,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, batchSearchResponse{Results: items})
}

type tokenizeRequest struct {
	Text string `json:"text"`
}

func (h *Handler) Tokenize(c echo.Context) error {
	var req tokenizeRequest
	if err := c.Bind(&req); err != nil {
		return writeError(c, domain.NewProxyError(domain.KindInvalidInput, "Tokenize", "invalid request body"))
	}

	res, err := h.tokenize.Execute(c.Request().Context(), req.Text)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

type tokenizeCompoundResponse struct {
	domain.TokenizationResult
	Compounds []usecase.CompoundAnnotation `json:"compounds"`
}

func (h *Handler) TokenizeCompound(c echo.Context) error {
	var req tokenizeRequest
	if err := c.Bind(&req); err != nil {
		return writeError(c, domain.NewProxyError(domain.KindInvalidInput, "Tokenize", "invalid request body"))
	}

	res, annotations, err := h.tokenize.ExecuteWithCompounds(c.Request().Context(), req.Text)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, tokenizeCompoundResponse{
		TokenizationResult: res,
		Compounds:          annotations,
	})
}

type listCompoundsResponse struct {
	Entries []domain.CompoundEntry `json:"entries"`
	Total   int                    `json:"total"`
	Offset  int                    `json:"offset"`
	Limit   int                    `json:"limit"`
}

func (h *Handler) ListCompounds(c echo.Context) error {
	offset := intQueryParam(c, "offset", 0)
	limit := intQueryParam(c, "limit", 50)

	entries, total, err := h.compounds.List(c.Request().Context(), c.QueryParam("category"), offset, limit)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, listCompoundsResponse{
		Entries: entries,
		Total:   total,
		Offset:  offset,
		Limit:   limit,
	})
}

func (h *Handler) AddCompound(c echo.Context) error {
	var entry domain.CompoundEntry
	if err := c.Bind(&entry); err != nil {
		return writeError(c, domain.NewProxyError(domain.KindInvalidInput, "AddCompound", "invalid request body"))
	}

	added, err := h.compounds.Add(c.Request().Context(), entry)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, added)
}

func (h *Handler) UpdateCompound(c echo.Context) error {
	var entry domain.CompoundEntry
	if err := c.Bind(&entry); err != nil {
		return writeError(c, domain.NewProxyError(domain.KindInvalidInput, "UpdateCompound", "invalid request body"))
	}

	updated, err := h.compounds.Update(c.Request().Context(), c.Param("surface"), entry)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, updated)
}

func (h *Handler) RemoveCompound(c echo.Context) error {
	if err := h.compounds.Remove(c.Request().Context(), c.Param("surface")); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) Health(c echo.Context) error {
	status := h.health.Check(c.Request().Context())
	code := http.StatusOK
	if status.Status == "unhealthy" {
		code = http.StatusServiceUnavailable
	}
	return c.JSON(code, status)
}

func (h *Handler) HealthDetailed(c echo.Context) error {
	detailed := h.health.Detailed(c.Request().Context())
	code := http.StatusOK
	if detailed.Status == "unhealthy" {
		code = http.StatusServiceUnavailable
	}
	return c.JSON(code, detailed)
}

func intQueryParam(c echo.Context, name string, defaultVal int) int {
	raw := c.QueryParam(name)
	if raw == "" {
		return defaultVal
	}
	var v int
	if err := echo.QueryParamsBinder(c).Int(name, &v).BindError(); err != nil {
		return defaultVal
	}
	return v
}
