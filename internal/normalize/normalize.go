package normalize

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/songzhibin97/adminconsole/pkg/console"
)

type envelope map[string]json.RawMessage

// List normalizes a list response into the canonical ListResult.
//
// The item array is looked up as a bare array first, then under "data",
// then under the kind's own keys. Missing pagination metadata is
// synthesized and totalPages is always recomputed from total and limit.
func List[T any](kind Kind, raw []byte, req Request) (console.ListResult[T], error) {
	var result console.ListResult[T]

	body := bytes.TrimSpace(raw)
	if len(body) == 0 {
		return result, console.NewMalformedResponseError("EMPTY_BODY", fmt.Sprintf("%s: empty response body", kind.Name), nil)
	}

	if body[0] == '[' {
		items, err := decodeItems[T](kind, body)
		if err != nil {
			return result, err
		}
		result.Items = items
		result.Pagination = synthesize(len(items))
		return result, nil
	}

	env, err := decodeEnvelope(kind, body)
	if err != nil {
		return result, err
	}
	if err := checkSuccess(env, body); err != nil {
		return result, err
	}

	arr, ok := findArray(env, kind)
	if !ok {
		return result, console.NewMalformedResponseError(
			"UNRECOGNIZED_ENVELOPE",
			fmt.Sprintf("%s: no item array under data or %s (keys: %s)", kind.Name, strings.Join(kind.ListKeys, ", "), strings.Join(keysOf(env), ", ")),
			nil,
		)
	}
	items, err := decodeItems[T](kind, arr)
	if err != nil {
		return result, err
	}

	meta, err := decodePagination(kind, env["pagination"])
	if err != nil {
		return result, err
	}
	count, err := optionalInt(kind, "count", env["count"])
	if err != nil {
		return result, err
	}

	result.Items = items
	result.Pagination = paginate(len(items), meta, count, req)
	return result, nil
}

// Entity normalizes a single-entity response. The entity may be the body
// itself or sit under "data" or one of the kind's entity keys.
func Entity[T any](kind Kind, raw []byte) (T, error) {
	var zero T

	body := bytes.TrimSpace(raw)
	if len(body) == 0 || body[0] != '{' {
		return zero, console.NewMalformedResponseError("NOT_AN_OBJECT", fmt.Sprintf("%s: expected a JSON object", kind.Name), nil)
	}
	env, err := decodeEnvelope(kind, body)
	if err != nil {
		return zero, err
	}
	if err := checkSuccess(env, body); err != nil {
		return zero, err
	}

	obj, ok := findObject(env, kind)
	if !ok {
		return zero, console.NewMalformedResponseError(
			"UNRECOGNIZED_ENVELOPE",
			fmt.Sprintf("%s: no entity in response (keys: %s)", kind.Name, strings.Join(keysOf(env), ", ")),
			nil,
		)
	}

	var out T
	if err := json.Unmarshal(obj, &out); err != nil {
		return zero, console.NewMalformedResponseError("ENTITY_DECODE", fmt.Sprintf("%s: cannot decode entity", kind.Name), err)
	}
	return out, nil
}

// Profile normalizes the profile endpoint response.
func Profile(raw []byte) (console.Profile, error) {
	return Entity[console.Profile](profileKind, raw)
}

// LoginResult is the normalized login response.
type LoginResult struct {
	Token string
	User  console.Profile
}

// Login normalizes the login response. The token and user may sit at the top
// level or inside "data".
func Login(raw []byte) (LoginResult, error) {
	var out LoginResult

	body := bytes.TrimSpace(raw)
	if len(body) == 0 || body[0] != '{' {
		return out, console.NewMalformedResponseError("NOT_AN_OBJECT", "login: expected a JSON object", nil)
	}
	env, err := decodeEnvelope(profileKind, body)
	if err != nil {
		return out, err
	}
	if err := checkSuccess(env, body); err != nil {
		return out, err
	}

	for depth := 0; depth < 2; depth++ {
		token := firstString(env, "token", "accessToken", "access_token")
		if token != "" {
			out.Token = token
			user, ok := firstObject(env, "user", "profile")
			if !ok {
				return out, console.NewMalformedResponseError("MISSING_USER", "login: response carries no user", nil)
			}
			if err := json.Unmarshal(user, &out.User); err != nil {
				return out, console.NewMalformedResponseError("ENTITY_DECODE", "login: cannot decode user", err)
			}
			return out, nil
		}
		data, ok := firstObject(env, "data")
		if !ok {
			break
		}
		if env, err = decodeEnvelope(profileKind, data); err != nil {
			return out, err
		}
	}
	return out, console.NewMalformedResponseError("MISSING_TOKEN", "login: response carries no token", nil)
}

// ErrorMessage extracts the human readable message of an error body,
// preferring the structured error.message field. It returns "" when the body
// carries none.
func ErrorMessage(body []byte) string {
	var env struct {
		Error   json.RawMessage `json:"error"`
		Message string          `json:"message"`
	}
	if err := json.Unmarshal(bytes.TrimSpace(body), &env); err != nil {
		return ""
	}
	if len(env.Error) > 0 {
		var structured struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(env.Error, &structured) == nil && structured.Message != "" {
			return structured.Message
		}
		var plain string
		if json.Unmarshal(env.Error, &plain) == nil && plain != "" && env.Message == "" {
			return plain
		}
	}
	return env.Message
}

func decodeEnvelope(kind Kind, body []byte) (envelope, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, console.NewMalformedResponseError("INVALID_JSON", fmt.Sprintf("%s: response is not a JSON object", kind.Name), err)
	}
	return env, nil
}

// checkSuccess turns a {"success": false} envelope into a transport error.
func checkSuccess(env envelope, body []byte) error {
	raw, ok := env["success"]
	if !ok {
		return nil
	}
	var success bool
	if err := json.Unmarshal(raw, &success); err != nil || success {
		return nil
	}
	msg := ErrorMessage(body)
	if msg == "" {
		msg = "request failed"
	}
	return console.NewTransportError("REQUEST_FAILED", msg, 0, nil)
}

func findArray(env envelope, kind Kind) (json.RawMessage, bool) {
	keys := append([]string{"data"}, kind.ListKeys...)
	for _, key := range keys {
		raw, ok := env[key]
		if !ok {
			continue
		}
		raw = bytes.TrimSpace(raw)
		if bytes.Equal(raw, []byte("null")) {
			return json.RawMessage("[]"), true
		}
		if len(raw) > 0 && raw[0] == '[' {
			return raw, true
		}
	}
	return nil, false
}

func findObject(env envelope, kind Kind) (json.RawMessage, bool) {
	keys := append([]string{"data"}, kind.EntityKeys...)
	if obj, ok := firstObject(env, keys...); ok {
		return obj, true
	}
	_, hasUnderscore := env["_id"]
	_, hasID := env["id"]
	if hasUnderscore || hasID {
		body, err := json.Marshal(env)
		if err != nil {
			return nil, false
		}
		return body, true
	}
	return nil, false
}

func decodeItems[T any](kind Kind, raw []byte) ([]T, error) {
	items := make([]T, 0)
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, console.NewMalformedResponseError("ITEM_DECODE", fmt.Sprintf("%s: cannot decode items", kind.Name), err)
	}
	if items == nil {
		items = make([]T, 0)
	}
	return items, nil
}

type pageMeta struct {
	Page  *flexInt `json:"page"`
	Limit *flexInt `json:"limit"`
	Total *flexInt `json:"total"`
}

func decodePagination(kind Kind, raw json.RawMessage) (*pageMeta, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	var meta pageMeta
	if err := json.Unmarshal(raw, &meta); err != nil {
		return nil, console.NewMalformedResponseError("PAGINATION_DECODE", fmt.Sprintf("%s: cannot decode pagination", kind.Name), err)
	}
	return &meta, nil
}

func optionalInt(kind Kind, field string, raw json.RawMessage) (*int, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	var v flexInt
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, console.NewMalformedResponseError("PAGINATION_DECODE", fmt.Sprintf("%s: %s is not a number", kind.Name, field), err)
	}
	n := int(v)
	return &n, nil
}

// synthesize builds the pagination of a response that carried none.
func synthesize(n int) console.Pagination {
	return console.Pagination{Page: 1, Limit: n, Total: n, TotalPages: 1}
}

func paginate(n int, meta *pageMeta, count *int, req Request) console.Pagination {
	if meta == nil && count == nil {
		return synthesize(n)
	}
	if meta == nil {
		meta = &pageMeta{}
	}

	page := firstPositive(meta.Page.value(), req.Page, 1)
	limit := firstPositive(meta.Limit.value(), req.Limit, n)
	if limit < n {
		limit = n
	}

	total := n
	switch {
	case meta.Total != nil:
		total = meta.Total.value()
	case count != nil:
		total = *count
	}
	if total < 0 {
		total = 0
	}

	return console.Pagination{
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: TotalPages(total, limit),
	}
}

// TotalPages returns ceil(total/limit). A zero limit yields a single page.
func TotalPages(total, limit int) int {
	if limit <= 0 {
		return 1
	}
	if total <= 0 {
		return 0
	}
	pages := total / limit
	if total%limit != 0 {
		pages++
	}
	return pages
}

func firstPositive(values ...int) int {
	for _, v := range values {
		if v > 0 {
			return v
		}
	}
	return 0
}

func firstString(env envelope, keys ...string) string {
	for _, key := range keys {
		var s string
		if raw, ok := env[key]; ok && json.Unmarshal(raw, &s) == nil && s != "" {
			return s
		}
	}
	return ""
}

func firstObject(env envelope, keys ...string) (json.RawMessage, bool) {
	for _, key := range keys {
		raw := bytes.TrimSpace(env[key])
		if len(raw) > 0 && raw[0] == '{' {
			return raw, true
		}
	}
	return nil, false
}

func keysOf(env envelope) []string {
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// flexInt accepts numbers and numeric strings.
type flexInt int

func (f *flexInt) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		data = []byte(strings.TrimSpace(s))
	}
	n, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return fmt.Errorf("not a number: %s", data)
	}
	*f = flexInt(n)
	return nil
}

func (f *flexInt) value() int {
	if f == nil {
		return 0
	}
	return int(*f)
}
