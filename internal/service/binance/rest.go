package binance

import (
	"context"
	"fmt"
	"strings"
	"time"

	xhttp "PairPulse/pkg/http"
)

// RESTChecker verifies configured symbols against the exchange REST API.
// It is a startup sanity check only; the streaming path never depends on it.
type RESTChecker struct {
	baseURL string
	client  *xhttp.Client
}

func NewRESTChecker(baseURL string, timeout time.Duration) *RESTChecker {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &RESTChecker{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  xhttp.NewClient(xhttp.WithTimeout(timeout)),
	}
}

type exchangeInfo struct {
	Symbols []struct {
		Symbol string `json:"symbol"`
		Status string `json:"status"`
	} `json:"symbols"`
}

// VerifySymbols returns an error naming any configured symbol the exchange
// does not list as TRADING.
func (r *RESTChecker) VerifySymbols(ctx context.Context, symbols []string) error {
	var info exchangeInfo
	err := r.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    r.baseURL + "/api/v3/exchangeInfo",
	}, &info)
	if err != nil {
		return fmt.Errorf("exchange info: %w", err)
	}

	trading := make(map[string]bool, len(info.Symbols))
	for _, s := range info.Symbols {
		if s.Status == "TRADING" {
			trading[strings.ToLower(s.Symbol)] = true
		}
	}

	var missing []string
	for _, s := range symbols {
		if !trading[strings.ToLower(s)] {
			missing = append(missing, s)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("symbols not tradable: %s", strings.Join(missing, ","))
	}
	return nil
}
