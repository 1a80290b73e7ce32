// Package http exposes a read-only operator API for inspecting the LSP state
package http

import (
	"net/http"
	"slices"
	"strconv"

	"github.com/golang-jwt/jwt/v5"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/flokiorg/lspd/config"
	"github.com/flokiorg/lspd/constants"
	"github.com/flokiorg/lspd/lnclient"
	decodepay "github.com/flokiorg/lspd/lndecodepay"
	"github.com/flokiorg/lspd/logger"
	"github.com/flokiorg/lspd/lsps/persist"
	"github.com/flokiorg/lspd/utils"
)

type HttpService struct {
	store    *persist.OrderStore
	lnClient lnclient.LNClient
	cfg      *config.AppConfig
	limits   *config.Limits
}

func NewHttpService(store *persist.OrderStore, lnClient lnclient.LNClient, cfg *config.AppConfig, limits *config.Limits) *HttpService {
	return &HttpService{
		store:    store,
		lnClient: lnClient,
		cfg:      cfg,
		limits:   limits,
	}
}

type infoResponse struct {
	Pubkey    string         `json:"pubkey"`
	Alias     string         `json:"alias"`
	Network   string         `json:"network"`
	Protocols []int          `json:"protocols"`
	Website   string         `json:"website,omitempty"`
	Limits    *config.Limits `json:"limits"`
}

type ordersResponse struct {
	Orders []persist.Order `json:"orders"`
}

type orderDetailResponse struct {
	persist.Order
	DecodedInvoice *decodepay.Bolt11 `json:"decoded_invoice,omitempty"`
}

type logsResponse struct {
	Log string `json:"log"`
}

func (httpSvc *HttpService) RegisterRoutes(e *echo.Echo) {
	e.HideBanner = true

	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:      true,
		LogStatus:   true,
		LogRemoteIP: true,
		LogValuesFunc: func(c echo.Context, values middleware.RequestLoggerValues) error {
			logger.Logger.Info().
				Str("uri", values.URI).
				Int("status", values.Status).
				Str("remote_ip", values.RemoteIP).
				Msg("handled API request")
			return nil
		},
	}))
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())

	e.GET("/health", httpSvc.healthHandler)

	apiGroup := e.Group("/v1")
	if httpSvc.cfg.AuthJWTSecret != "" {
		apiGroup.Use(echojwt.WithConfig(echojwt.Config{
			KeyFunc: func(token *jwt.Token) (interface{}, error) {
				return []byte(httpSvc.cfg.AuthJWTSecret), nil
			},
			TokenLookup: "header:Authorization:Bearer ,query:token",
		}))
	}

	apiGroup.GET("/info", httpSvc.infoHandler)
	apiGroup.GET("/orders", httpSvc.listOrdersHandler)
	apiGroup.GET("/orders/:id", httpSvc.getOrderHandler)
	apiGroup.GET("/logs", httpSvc.logsHandler)
}

func (httpSvc *HttpService) healthHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (httpSvc *HttpService) infoHandler(c echo.Context) error {
	nodeInfo, err := httpSvc.lnClient.GetInfo(c.Request().Context())
	if err != nil {
		logger.Logger.Error().Err(err).Msg("Failed to fetch node info")
		return c.JSON(http.StatusServiceUnavailable, map[string]string{
			"message": "node unavailable",
		})
	}

	return c.JSON(http.StatusOK, &infoResponse{
		Pubkey:    nodeInfo.Pubkey,
		Alias:     nodeInfo.Alias,
		Network:   nodeInfo.Network,
		Protocols: httpSvc.cfg.EnabledProtocols(),
		Website:   httpSvc.cfg.Website,
		Limits:    httpSvc.limits,
	})
}

func (httpSvc *HttpService) listOrdersHandler(c echo.Context) error {
	limit := 50
	if raw := c.QueryParam("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 1000 {
			return c.JSON(http.StatusBadRequest, map[string]string{
				"message": "invalid limit",
			})
		}
		limit = parsed
	}

	offset := 0
	if raw := c.QueryParam("offset"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			return c.JSON(http.StatusBadRequest, map[string]string{
				"message": "invalid offset",
			})
		}
		offset = parsed
	}

	state := c.QueryParam("state")
	if state != "" && !slices.Contains(constants.OrderStates(), state) {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"message": "invalid state",
		})
	}

	orders, err := httpSvc.store.ListOrders(limit, offset, state)
	if err != nil {
		logger.Logger.Error().Err(err).Msg("Failed to list orders")
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"message": "failed to list orders",
		})
	}

	return c.JSON(http.StatusOK, &ordersResponse{Orders: orders})
}

func (httpSvc *HttpService) getOrderHandler(c echo.Context) error {
	order, err := httpSvc.store.Get(c.Param("id"))
	if err != nil {
		if err == persist.ErrOrderNotFound {
			return c.JSON(http.StatusNotFound, map[string]string{
				"message": "order not found",
			})
		}
		logger.Logger.Error().Err(err).
			Str("order_id", c.Param("id")).
			Msg("Failed to read order")
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"message": "failed to read order",
		})
	}

	response := &orderDetailResponse{Order: *order}
	if order.Bolt11Invoice != "" {
		decoded, err := decodepay.Decodepay(order.Bolt11Invoice)
		if err != nil {
			logger.Logger.Debug().Err(err).
				Str("order_id", order.OrderID).
				Msg("Failed to decode order invoice")
		} else {
			response.DecodedInvoice = &decoded
		}
	}

	return c.JSON(http.StatusOK, response)
}

func (httpSvc *HttpService) logsHandler(c echo.Context) error {
	maxLen := 100_000
	if raw := c.QueryParam("max_len"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			return c.JSON(http.StatusBadRequest, map[string]string{
				"message": "invalid max_len",
			})
		}
		maxLen = parsed
	}

	logFilePath := logger.GetLogFilePath()
	if logFilePath == "" {
		return c.JSON(http.StatusOK, &logsResponse{Log: "file log is disabled"})
	}

	logData, err := utils.ReadFileTail(logFilePath, maxLen)
	if err != nil {
		logger.Logger.Error().Err(err).Msg("Failed to read log file")
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"message": "failed to read log file",
		})
	}

	return c.JSON(http.StatusOK, &logsResponse{Log: string(logData)})
}
