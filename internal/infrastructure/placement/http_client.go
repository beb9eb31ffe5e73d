package placement

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/jhoicas/materiales-api/internal/application/procurement"
	"github.com/jhoicas/materiales-api/internal/domain/entity"
)

var _ procurement.SupplierPlacement = (*HTTPClient)(nil)

// HTTPClient adaptador de colocación contra el gateway REST de pedidos a proveedores.
//
//	POST   {base}/suppliers/{id}/orders
//	DELETE {base}/suppliers/{id}/orders/{external_id}
//	GET    {base}/suppliers/{id}/materials/{material_id}/price
//	GET    {base}/suppliers/{id}/materials/{material_id}/availability?quantity=N
type HTTPClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewHTTPClient construye el adaptador. El timeout por llamada lo pone el caller vía ctx.
func NewHTTPClient(baseURL, apiKey string) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

type placeOrderBody struct {
	OrderID      string          `json:"order_id"`
	MaterialID   string          `json:"material_id"`
	MaterialName string          `json:"material_name"`
	Quantity     int64           `json:"quantity"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	TotalPrice   decimal.Decimal `json:"total_price"`
}

type confirmationBody struct {
	Success           bool       `json:"success"`
	ExternalOrderID   string     `json:"external_order_id"`
	EstimatedDelivery *time.Time `json:"estimated_delivery"`
	Error             string     `json:"error"`
}

// PlaceOrder envía la orden. Un 4xx con cuerpo de confirmación es un rechazo, no un error de transporte.
func (c *HTTPClient) PlaceOrder(ctx context.Context, supplier *entity.Supplier, req procurement.PlacementRequest) (*procurement.Confirmation, error) {
	body := placeOrderBody{
		OrderID:      req.OrderID,
		MaterialID:   req.MaterialID,
		MaterialName: req.MaterialName,
		Quantity:     req.Quantity,
		UnitPrice:    req.UnitPrice,
		TotalPrice:   req.TotalPrice,
	}
	var out confirmationBody
	status, err := c.do(ctx, http.MethodPost, c.path("suppliers", supplier.ID, "orders"), body, &out)
	if err != nil {
		return nil, err
	}
	if status >= 500 {
		return nil, fmt.Errorf("placement: HTTP %d", status)
	}
	if status >= 400 && out.Error == "" {
		out.Error = fmt.Sprintf("rechazada por el proveedor (HTTP %d)", status)
	}
	return &procurement.Confirmation{
		Success:           out.Success && status < 400,
		ExternalOrderID:   out.ExternalOrderID,
		EstimatedDelivery: out.EstimatedDelivery,
		Error:             out.Error,
	}, nil
}

// GetPrice devuelve nil si el proveedor no cotiza el material (404).
func (c *HTTPClient) GetPrice(ctx context.Context, supplierID, materialID string) (*decimal.Decimal, error) {
	var out struct {
		UnitPrice decimal.Decimal `json:"unit_price"`
	}
	status, err := c.do(ctx, http.MethodGet, c.path("suppliers", supplierID, "materials", materialID, "price"), nil, &out)
	if err != nil {
		return nil, err
	}
	switch {
	case status == http.StatusNotFound:
		return nil, nil
	case status >= 400:
		return nil, fmt.Errorf("placement: precio HTTP %d", status)
	}
	return &out.UnitPrice, nil
}

// CheckAvailability consulta si el proveedor puede despachar quantity.
func (c *HTTPClient) CheckAvailability(ctx context.Context, supplierID, materialID string, quantity int64) (bool, error) {
	var out struct {
		Available bool `json:"available"`
	}
	u := c.path("suppliers", supplierID, "materials", materialID, "availability") +
		"?quantity=" + strconv.FormatInt(quantity, 10)
	status, err := c.do(ctx, http.MethodGet, u, nil, &out)
	if err != nil {
		return false, err
	}
	if status >= 400 {
		return false, fmt.Errorf("placement: disponibilidad HTTP %d", status)
	}
	return out.Available, nil
}

// CancelOrder anula una orden ya colocada.
func (c *HTTPClient) CancelOrder(ctx context.Context, supplier *entity.Supplier, externalOrderID string) (bool, error) {
	var out struct {
		Cancelled bool `json:"cancelled"`
	}
	status, err := c.do(ctx, http.MethodDelete, c.path("suppliers", supplier.ID, "orders", externalOrderID), nil, &out)
	if err != nil {
		return false, err
	}
	if status >= 400 {
		return false, fmt.Errorf("placement: anulación HTTP %d", status)
	}
	return out.Cancelled, nil
}

func (c *HTTPClient) path(parts ...string) string {
	escaped := make([]string, len(parts))
	for i, p := range parts {
		escaped[i] = url.PathEscape(p)
	}
	return c.baseURL + "/" + strings.Join(escaped, "/")
}

// do ejecuta la llamada y decodifica el cuerpo JSON en out cuando lo hay.
func (c *HTTPClient) do(ctx context.Context, method, u string, in, out any) (int, error) {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return 0, fmt.Errorf("placement: serializar request: %w", err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return 0, fmt.Errorf("placement: crear HTTP request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return 0, fmt.Errorf("placement: timeout o cancelación: %w", ctx.Err())
		}
		return 0, fmt.Errorf("placement: llamada HTTP fallida: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return resp.StatusCode, fmt.Errorf("placement: leer respuesta: %w", err)
	}
	if len(bytes.TrimSpace(raw)) > 0 && out != nil {
		if err := json.Unmarshal(raw, out); err != nil && resp.StatusCode < 400 {
			return resp.StatusCode, fmt.Errorf("placement: respuesta no es JSON válido: %w", err)
		}
	}
	return resp.StatusCode, nil
}
