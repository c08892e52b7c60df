package source

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
)

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int    `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params,omitempty"`
}

type rpcErrorBody struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type voteAccountsResponse struct {
	Result *struct {
		Current    []voteAccount `json:"current"`
		Delinquent []voteAccount `json:"delinquent"`
	} `json:"result"`
	Error *rpcErrorBody `json:"error"`
}

// voteAccount mirrors one entry of getVoteAccounts. EpochCredits rows are
// [epoch, credits, previousCredits].
type voteAccount struct {
	VotePubkey     string     `json:"votePubkey"`
	NodePubkey     string     `json:"nodePubkey"`
	Commission     *float64   `json:"commission"`
	EpochCredits   [][]uint64 `json:"epochCredits"`
	ActivatedStake uint64     `json:"activatedStake"`
	delinquent     bool
}

// callError is a failed call to one endpoint, carrying enough to classify it.
type callError struct {
	Endpoint   string
	StatusCode int
	RPCCode    int
	Message    string
	Err        error
}

func (e *callError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("calling %s: %v", e.Endpoint, e.Err)
	case e.RPCCode != 0:
		return fmt.Sprintf("calling %s: rpc error %d: %s", e.Endpoint, e.RPCCode, e.Message)
	default:
		return fmt.Sprintf("calling %s: http %d: %s", e.Endpoint, e.StatusCode, e.Message)
	}
}

func (e *callError) Unwrap() error {
	return e.Err
}

var rateLimitPattern = regexp.MustCompile(`(?i)rate.?limit|too many requests`)

// rateLimited reports whether the endpoint asked us to slow down.
func (e *callError) rateLimited() bool {
	if e.StatusCode == http.StatusTooManyRequests || e.RPCCode == 429 || e.RPCCode == -32005 {
		return true
	}
	return rateLimitPattern.MatchString(e.Message)
}

func (c *Client) getVoteAccounts(ctx context.Context, endpoint string) ([]voteAccount, error) {
	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "getVoteAccounts",
		Params:  []any{map[string]string{"commitment": "finalized"}},
	})
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, &callError{Endpoint: endpoint, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &callError{Endpoint: endpoint, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &callError{Endpoint: endpoint, StatusCode: resp.StatusCode, Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &callError{Endpoint: endpoint, StatusCode: resp.StatusCode, Message: string(bytes.TrimSpace(raw))}
	}

	var decoded voteAccountsResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, &callError{Endpoint: endpoint, StatusCode: resp.StatusCode, Err: fmt.Errorf("decoding response: %w", err)}
	}
	if decoded.Error != nil {
		return nil, &callError{Endpoint: endpoint, StatusCode: resp.StatusCode, RPCCode: decoded.Error.Code, Message: decoded.Error.Message}
	}
	if decoded.Result == nil {
		return nil, &callError{Endpoint: endpoint, StatusCode: resp.StatusCode, Message: "empty result"}
	}

	accounts := make([]voteAccount, 0, len(decoded.Result.Current)+len(decoded.Result.Delinquent))
	accounts = append(accounts, decoded.Result.Current...)
	for _, acc := range decoded.Result.Delinquent {
		acc.delinquent = true
		accounts = append(accounts, acc)
	}
	return accounts, nil
}
