package tools

import (
	"strconv"

	"github.com/tareqmamari/cloudwatch-logs-mcp-server/internal/errors"
)

// GetStringParam safely gets a string parameter from arguments
func GetStringParam(arguments map[string]interface{}, key string, required bool) (string, error) {
	val, ok := arguments[key]
	if !ok {
		if required {
			return "", errors.InvalidParameter("missing required argument: %s", key)
		}
		return "", nil
	}

	switch v := val.(type) {
	case string:
		if required && v == "" {
			return "", errors.InvalidParameter("argument %s must not be empty", key)
		}
		return v, nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case int:
		return strconv.Itoa(v), nil
	default:
		return "", errors.InvalidParameter("invalid type for argument %s: expected string, got %T", key, val)
	}
}

// GetIntParam safely gets an integer parameter from arguments
func GetIntParam(arguments map[string]interface{}, key string, required bool) (int, error) {
	val, ok := arguments[key]
	if !ok {
		if required {
			return 0, errors.InvalidParameter("missing required argument: %s", key)
		}
		return 0, nil
	}

	switch v := val.(type) {
	case float64:
		return int(v), nil
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case string:
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0, errors.InvalidParameter("invalid value for argument %s: %q is not an integer", key, v)
		}
		return n, nil
	default:
		return 0, errors.InvalidParameter("invalid type for argument %s: expected number, got %T", key, val)
	}
}

// GetBoolParam safely gets a boolean parameter from arguments
func GetBoolParam(arguments map[string]interface{}, key string, required bool) (bool, error) {
	val, ok := arguments[key]
	if !ok {
		if required {
			return false, errors.InvalidParameter("missing required argument: %s", key)
		}
		return false, nil
	}

	switch v := val.(type) {
	case bool:
		return v, nil
	case string:
		b, err := strconv.ParseBool(v)
		if err != nil {
			return false, errors.InvalidParameter("invalid value for argument %s: %q is not a boolean", key, v)
		}
		return b, nil
	default:
		return false, errors.InvalidParameter("invalid type for argument %s: expected boolean, got %T", key, val)
	}
}

// GetStringArrayParam safely gets a string array parameter from arguments
func GetStringArrayParam(arguments map[string]interface{}, key string, required bool) ([]string, error) {
	val, ok := arguments[key]
	if !ok {
		if required {
			return nil, errors.InvalidParameter("missing required argument: %s", key)
		}
		return nil, nil
	}

	switch arr := val.(type) {
	case []string:
		return arr, nil
	case []interface{}:
		result := make([]string, 0, len(arr))
		for i, v := range arr {
			s, ok := v.(string)
			if !ok {
				return nil, errors.InvalidParameter("invalid type for element %d of argument %s: expected string", i, key)
			}
			result = append(result, s)
		}
		return result, nil
	default:
		return nil, errors.InvalidParameter("invalid type for argument %s: expected array", key)
	}
}
