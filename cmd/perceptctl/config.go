package main

import (
	"encoding/json"
	"fmt"
	"os"

	perceptapi "percept/pkg/percept"
)

func loadRunRequestFromConfig(path string) (perceptapi.RunRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return perceptapi.RunRequest{}, err
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return perceptapi.RunRequest{}, err
	}

	var req perceptapi.RunRequest
	if v, ok := asString(raw["run_id"]); ok {
		req.RunID = v
	}
	if v, ok := asFloat64(raw["a"]); ok {
		req.A = v
	}
	if v, ok := asFloat64(raw["b"]); ok {
		req.B = v
	}
	if v, ok := asFloat64(raw["c"]); ok {
		req.C = v
	}
	if v, ok := asFloat64(raw["learn"]); ok {
		req.Learn = v
	}
	if v, ok := asFloat64(raw["lowrange"]); ok {
		req.LowRange = v
	}
	if v, ok := asFloat64(raw["highrange"]); ok {
		req.HighRange = v
	}
	if v, ok := asInt(raw["streak"]); ok {
		req.StreakTarget = v
	}
	if v, ok := asString(raw["bias_policy"]); ok {
		req.BiasPolicy = v
	}
	if v, ok := asFloat64(raw["bias_value"]); ok {
		req.BiasValue = &v
	}
	if v, ok := asString(raw["activation"]); ok {
		req.Activation = v
	}
	if v, ok := asInt64(raw["seed"]); ok {
		req.Seed = v
	}
	if v, ok := asInt(raw["attempts_limit"]); ok {
		req.AttemptsLimit = v
	}

	return req, nil
}

func loadOrDefaultRunRequest(configPath string) (perceptapi.RunRequest, error) {
	if configPath == "" {
		return perceptapi.RunRequest{}, nil
	}
	req, err := loadRunRequestFromConfig(configPath)
	if err != nil {
		return perceptapi.RunRequest{}, fmt.Errorf("load config: %w", err)
	}
	return req, nil
}

func overrideFromFlags(req *perceptapi.RunRequest, set map[string]bool, flagValue map[string]any) {
	for name := range set {
		v, ok := flagValue[name]
		if !ok {
			continue
		}
		switch name {
		case "run-id":
			req.RunID = v.(string)
		case "a":
			req.A = v.(float64)
		case "b":
			req.B = v.(float64)
		case "c":
			req.C = v.(float64)
		case "learn":
			req.Learn = v.(float64)
		case "lowrange":
			req.LowRange = v.(float64)
		case "highrange":
			req.HighRange = v.(float64)
		case "streak":
			req.StreakTarget = v.(int)
		case "bias-policy":
			req.BiasPolicy = v.(string)
		case "bias-value":
			value := v.(float64)
			req.BiasValue = &value
		case "activation":
			req.Activation = v.(string)
		case "seed":
			req.Seed = v.(int64)
		case "attempts-limit":
			req.AttemptsLimit = v.(int)
		}
	}
}

func asString(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

func asInt(v any) (int, bool) {
	switch x := v.(type) {
	case int:
		return x, true
	case float64:
		return int(x), true
	default:
		return 0, false
	}
}

func asInt64(v any) (int64, bool) {
	switch x := v.(type) {
	case int64:
		return x, true
	case int:
		return int64(x), true
	case float64:
		return int64(x), true
	default:
		return 0, false
	}
}

func asFloat64(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case int:
		return float64(x), true
	default:
		return 0, false
	}
}
