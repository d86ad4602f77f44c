package scoring

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"
)

var (
	// ErrUnavailable means the scoring service could not be reached
	// before the deadline. Mapped to 504; the caller may retry.
	ErrUnavailable = errors.New("scoring service unavailable")

	// ErrUpstream means the scoring service was reached but answered
	// with a transport failure, a non-200 status, or an unusable body.
	ErrUpstream = errors.New("scoring service error")
)

// FeatureVector is the typed input of the accident-severity model.
type FeatureVector struct {
	Place       int     `json:"place"`
	Catu        int     `json:"catu"`
	Sexe        int     `json:"sexe"`
	Secu1       float64 `json:"secu1"`
	YearAcc     int     `json:"year_acc"`
	VictimAge   int     `json:"victim_age"`
	Catv        int     `json:"catv"`
	Obsm        int     `json:"obsm"`
	Motor       int     `json:"motor"`
	Catr        int     `json:"catr"`
	Circ        int     `json:"circ"`
	Surf        int     `json:"surf"`
	Situ        int     `json:"situ"`
	Vma         int     `json:"vma"`
	Jour        int     `json:"jour"`
	Mois        int     `json:"mois"`
	Lum         int     `json:"lum"`
	Dep         int     `json:"dep"`
	Com         int     `json:"com"`
	Agg         int     `json:"agg_"`
	Inter       int     `json:"int"`
	Atm         int     `json:"atm"`
	Col         int     `json:"col"`
	Lat         float64 `json:"lat"`
	Long        float64 `json:"long"`
	Hour        int     `json:"hour"`
	NbVictim    int     `json:"nb_victim"`
	NbVehicules int     `json:"nb_vehicules"`
}

// Client calls the externally hosted scoring service.
type Client struct {
	baseURL    string
	timeout    time.Duration
	httpClient *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		timeout: timeout,
		httpClient: &http.Client{
			// The per-request deadline comes from the context; no
			// client-level timeout on top of it.
			Transport: http.DefaultTransport,
		},
	}
}

type predictResponse struct {
	Prediction *float64 `json:"prediction"`
}

// Predict posts the feature vector and returns the scalar severity in
// [0,1]. The call is bounded by the client timeout and by ctx, so a
// disconnected caller abandons the request.
func (c *Client) Predict(ctx context.Context, features *FeatureVector) (float64, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body, err := json.Marshal(features)
	if err != nil {
		return 0, fmt.Errorf("%w: encoding features: %v", ErrUpstream, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/predict", bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("%w: building request: %v", ErrUpstream, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isUnavailable(err) {
			return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		return 0, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("%w: status %d", ErrUpstream, resp.StatusCode)
	}

	var parsed predictResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return 0, fmt.Errorf("%w: decoding response: %v", ErrUpstream, err)
	}
	if parsed.Prediction == nil {
		return 0, fmt.Errorf("%w: response missing prediction", ErrUpstream)
	}

	severity := *parsed.Prediction
	if severity < 0 || severity > 1 {
		return 0, fmt.Errorf("%w: severity %g outside [0,1]", ErrUpstream, severity)
	}

	return severity, nil
}

// isUnavailable distinguishes "could not reach the service" (timeout or
// connection establishment failure) from a generic transport error.
func isUnavailable(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return true
	}
	return false
}
