package protocol

import (
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/alessio/shellescape"
	"github.com/kballard/go-shellquote"
	"github.com/shopspring/decimal"
)

var argKeyPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Arguments is anything a transport can hand to the gateway: either a
// parameter map or an argument string rendered beforehand.
type Arguments interface {
	// Encode renders the command line argument string.
	Encode() string
	// Values returns the same parameters as form values.
	Values() (url.Values, error)
}

// Args maps gateway parameter names to scalar values.
type Args map[string]any

// Merge returns a new map with overrides applied on top of a.
func (a Args) Merge(overrides Args) Args {
	merged := make(Args, len(a)+len(overrides))
	for k, v := range a {
		merged[k] = v
	}
	for k, v := range overrides {
		merged[k] = v
	}
	return merged
}

// Validate rejects keys that cannot be passed unquoted on a command line.
func (a Args) Validate() error {
	for k := range a {
		if !argKeyPattern.MatchString(k) {
			return fmt.Errorf("%w: argument key %q", ErrInvalidConfiguration, k)
		}
	}
	return nil
}

// Encode renders the map as space separated key=value pairs with shell-escaped
// values. Empty, nil and false values are dropped; numbers are always kept,
// zero included.
func (a Args) Encode() string {
	var b strings.Builder
	for _, k := range a.sortedKeys() {
		v, ok := renderValue(a[k])
		if !ok {
			continue
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(shellescape.Quote(v))
		b.WriteByte(' ')
	}
	return strings.TrimSpace(b.String())
}

// Values applies the same filtering as Encode without any escaping.
func (a Args) Values() (url.Values, error) {
	values := url.Values{}
	for _, k := range a.sortedKeys() {
		if v, ok := renderValue(a[k]); ok {
			values.Set(k, v)
		}
	}
	return values, nil
}

func (a Args) sortedKeys() []string {
	keys := make([]string, 0, len(a))
	for k := range a {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// String returns the value of key rendered the way Encode would, or "".
func (a Args) String(key string) string {
	v, _ := renderValue(a[key])
	return v
}

// RawArgs is an argument string that Encode passes through unchanged. The
// exec transport escapes its shell metacharacters before running a binary.
type RawArgs string

func (r RawArgs) Encode() string { return string(r) }

// Values splits the string with shell word rules into key=value pairs.
func (r RawArgs) Values() (url.Values, error) {
	words, err := shellquote.Split(string(r))
	if err != nil {
		return nil, fmt.Errorf("%w: raw arguments: %v", ErrInvalidConfiguration, err)
	}
	values := url.Values{}
	for _, w := range words {
		k, v, ok := strings.Cut(w, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("%w: raw argument %q is not key=value", ErrInvalidConfiguration, w)
		}
		values.Set(k, v)
	}
	return values, nil
}

// SerializeArgs renders args for the command line.
func SerializeArgs(args Arguments) string {
	return args.Encode()
}

// renderValue reports the textual form of v and whether it should be emitted.
func renderValue(v any) (string, bool) {
	switch val := v.(type) {
	case nil:
		return "", false
	case string:
		return val, val != ""
	case bool:
		if val {
			return "1", true
		}
		return "", false
	case int:
		return strconv.Itoa(val), true
	case int8:
		return strconv.FormatInt(int64(val), 10), true
	case int16:
		return strconv.FormatInt(int64(val), 10), true
	case int32:
		return strconv.FormatInt(int64(val), 10), true
	case int64:
		return strconv.FormatInt(val, 10), true
	case uint:
		return strconv.FormatUint(uint64(val), 10), true
	case uint8:
		return strconv.FormatUint(uint64(val), 10), true
	case uint16:
		return strconv.FormatUint(uint64(val), 10), true
	case uint32:
		return strconv.FormatUint(uint64(val), 10), true
	case uint64:
		return strconv.FormatUint(val, 10), true
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32), true
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), true
	case decimal.Decimal:
		return val.String(), true
	case fmt.Stringer:
		s := val.String()
		return s, s != ""
	default:
		s := fmt.Sprint(val)
		return s, s != ""
	}
}
