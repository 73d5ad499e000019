package script

// The http_tls module gives scripts a client with a Chrome TLS fingerprint, which some
// hosts require before serving episode pages.
//
//	http_tls.get(url)              → body string
//	http_tls.get(url, headers_tbl) → body string with custom headers
//	http_tls.request(options_tbl)  → {status, body}

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/anisan-cli/anistream/constant"
	"github.com/anisan-cli/anistream/internal/cache"
	"github.com/anisan-cli/anistream/network"
	lua "github.com/yuin/gopher-lua"
)

const httpTimeout = 30 * time.Second

var tlsClient = &http.Client{
	Timeout:   httpTimeout,
	Transport: network.NewFingerprintTransport(),
}

func registerTLSClient(L *lua.LState) {
	mod := L.NewTable()
	L.SetField(mod, "get", L.NewFunction(httpTLSGet))
	L.SetField(mod, "request", L.NewFunction(httpTLSRequest))
	L.SetGlobal("http_tls", mod)
}

func httpTLSGet(L *lua.LState) int {
	url := L.CheckString(1)
	headers := tableToHeaders(L.OptTable(2, nil))

	body, _, err := doTLSRequest(http.MethodGet, url, headers, "")
	if err != nil {
		L.RaiseError("http_tls.get failed: %s", err.Error())
		return 0
	}

	L.Push(lua.LString(body))
	return 1
}

type tlsCacheEntry struct {
	Status int    `json:"status"`
	Body   string `json:"body"`
}

func httpTLSRequest(L *lua.LState) int {
	opts := L.CheckTable(1)

	method := getStringField(opts, "method", http.MethodGet)
	url := getStringField(opts, "url", "")
	reqBody := getStringField(opts, "body", "")
	headers := tableToHeaders(opts.RawGetString("headers"))
	shouldCache := lua.LVAsBool(opts.RawGetString("cache"))

	if url == "" {
		L.RaiseError("http_tls.request: url is required")
		return 0
	}

	cacheKey := cache.GenerateKey(url+reqBody, method)
	var entry tlsCacheEntry
	if !shouldCache || !cache.Read(cacheKey, &entry) {
		body, status, err := doTLSRequest(method, url, headers, reqBody)
		if err != nil {
			L.RaiseError("http_tls.request failed: %s", err.Error())
			return 0
		}
		entry = tlsCacheEntry{Status: status, Body: body}

		if shouldCache && status == http.StatusOK {
			_ = cache.Write(cacheKey, entry)
		}
	}

	result := L.NewTable()
	L.SetField(result, "status", lua.LNumber(entry.Status))
	L.SetField(result, "body", lua.LString(entry.Body))
	L.Push(result)
	return 1
}

func getStringField(tbl *lua.LTable, key string, def string) string {
	val := tbl.RawGetString(key)
	if val == lua.LNil {
		return def
	}
	return val.String()
}

func tableToHeaders(val lua.LValue) map[string]string {
	headers := make(map[string]string)
	if tbl, ok := val.(*lua.LTable); ok {
		tbl.ForEach(func(k, v lua.LValue) {
			headers[k.String()] = v.String()
		})
	}
	return headers
}

func doTLSRequest(method, url string, headers map[string]string, body string) (string, int, error) {
	var reqBody io.Reader
	if body != "" {
		reqBody = strings.NewReader(body)
	}

	req, err := http.NewRequest(method, url, reqBody)
	if err != nil {
		return "", 0, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", constant.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := tlsClient.Do(req)
	if err != nil {
		return "", 0, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", resp.StatusCode, fmt.Errorf("read body: %w", err)
	}

	return string(respBody), resp.StatusCode, nil
}
