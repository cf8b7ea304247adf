package chain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// ErrVerificationFailed is returned when the explorer rejects a submission.
var ErrVerificationFailed = errors.New("verification failed")

// explorerResponse is the raw Etherscan/BlockScout-compatible API envelope.
// Result is kept as RawMessage because it is a GUID, a status string or an
// error message depending on the action.
type explorerResponse struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
}

// VerifyRequest describes one contract source verification.
type VerifyRequest struct {
	Address common.Address
	// Fully qualified name, e.g. "contracts/AgentRegistry.sol:AgentRegistry".
	ContractName string
	// Full solc version, e.g. "v0.8.20+commit.a1b79de6".
	CompilerVersion string
	// Standard JSON input as emitted in Hardhat build-info.
	StandardJSONInput string
	// Hex-encoded ABI constructor arguments without 0x; empty for none.
	ConstructorArgs string
}

// Verifier submits sources to an Etherscan-compatible explorer API.
type Verifier struct {
	apiURL       string
	apiKey       string
	client       *http.Client
	pollInterval time.Duration
}

// NewVerifier creates a Verifier. apiKey may be empty for BlockScout.
func NewVerifier(apiURL, apiKey string) *Verifier {
	return &Verifier{
		apiURL:       apiURL,
		apiKey:       apiKey,
		client:       &http.Client{Timeout: 30 * time.Second},
		pollInterval: 5 * time.Second,
	}
}

// Submit sends a verifysourcecode request and returns the explorer's GUID.
// A contract that is already verified yields an empty GUID and no error.
func (v *Verifier) Submit(ctx context.Context, req VerifyRequest) (string, error) {
	form := url.Values{}
	form.Set("module", "contract")
	form.Set("action", "verifysourcecode")
	form.Set("contractaddress", req.Address.Hex())
	form.Set("sourceCode", req.StandardJSONInput)
	form.Set("codeformat", "solidity-standard-json-input")
	form.Set("contractname", req.ContractName)
	form.Set("compilerversion", req.CompilerVersion)
	// The misspelling is part of the Etherscan API.
	form.Set("constructorArguements", req.ConstructorArgs)
	if v.apiKey != "" {
		form.Set("apikey", v.apiKey)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, v.apiURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	env, err := v.do(httpReq)
	if err != nil {
		return "", err
	}
	msg := env.resultString()
	if env.Status != "1" {
		if isAlreadyVerified(msg) {
			return "", nil
		}
		return "", fmt.Errorf("%w: %s", ErrVerificationFailed, firstNonEmpty(msg, env.Message))
	}
	return msg, nil
}

// Status checks a pending verification. done is true once the explorer has
// reached a final verdict; err is set when that verdict is a failure.
func (v *Verifier) Status(ctx context.Context, guid string) (done bool, err error) {
	q := url.Values{}
	q.Set("module", "contract")
	q.Set("action", "checkverifystatus")
	q.Set("guid", guid)
	if v.apiKey != "" {
		q.Set("apikey", v.apiKey)
	}
	sep := "?"
	if strings.Contains(v.apiURL, "?") {
		sep = "&"
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, v.apiURL+sep+q.Encode(), nil)
	if err != nil {
		return false, err
	}

	env, err := v.do(httpReq)
	if err != nil {
		return false, err
	}
	msg := env.resultString()
	switch {
	case strings.Contains(strings.ToLower(msg), "pending"):
		return false, nil
	case env.Status == "1" || isAlreadyVerified(msg):
		return true, nil
	default:
		return true, fmt.Errorf("%w: %s", ErrVerificationFailed, firstNonEmpty(msg, env.Message))
	}
}

// Verify submits req and polls until the explorer reaches a verdict.
func (v *Verifier) Verify(ctx context.Context, req VerifyRequest) error {
	guid, err := v.Submit(ctx, req)
	if err != nil || guid == "" {
		return err
	}
	ticker := time.NewTicker(v.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
		done, err := v.Status(ctx, guid)
		if done || err != nil {
			return err
		}
	}
}

func (v *Verifier) do(req *http.Request) (*explorerResponse, error) {
	resp, err := v.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("explorer request failed: %w", err)
	}
	defer resp.Body.Close()

	var env explorerResponse
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("parsing explorer response: %w", err)
	}
	return &env, nil
}

func (e *explorerResponse) resultString() string {
	var s string
	if json.Unmarshal(e.Result, &s) == nil {
		return s
	}
	return string(e.Result)
}

func isAlreadyVerified(msg string) bool {
	return strings.Contains(strings.ToLower(msg), "already verified")
}

func firstNonEmpty(ss ...string) string {
	for _, s := range ss {
		if s != "" {
			return s
		}
	}
	return ""
}
