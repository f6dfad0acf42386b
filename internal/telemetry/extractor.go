package telemetry

import "errors"

// Feature names, in classifier input order. The downstream model is
// positionally sensitive, so this slice is the single source of truth for
// vector layout.
var FeatureOrder = []string{
	"mouse_movement_count",
	"mouse_velocity_mean",
	"mouse_acceleration_variance",
	"mouse_click_count",
	"keypress_count",
	"keypress_interval_mean",
	"scroll_event_count",
	"scroll_velocity_mean",
	"scroll_consistency",
	"page_load_time",
	"first_interaction_time",
	"session_duration",
	"screen_width",
	"screen_height",
	"viewport_width",
	"viewport_height",
	"color_depth",
	"timezone_offset",
	"touch_support",
	"device_memory",
	"hardware_concurrency",
	"font_count",
	"plugin_count",
	"interaction_score",
	"movement_naturalness",
	"timing_regularity",
	"human_likelihood",
}

// ErrInvalidPayload is returned for a nil telemetry payload. Missing fields
// never fail extraction; they default to zero (0.5 for the human-likelihood
// prior).
var ErrInvalidPayload = errors.New("invalid_telemetry_payload")

type fieldSpec struct {
	section string
	key     string
	def     float64
}

var fieldSpecs = map[string]fieldSpec{
	"mouse_movement_count":        {"mouse", "movement_count", 0},
	"mouse_velocity_mean":         {"mouse", "velocity_mean", 0},
	"mouse_acceleration_variance": {"mouse", "acceleration_variance", 0},
	"mouse_click_count":           {"mouse", "click_count", 0},
	"keypress_count":              {"keyboard", "keypress_count", 0},
	"keypress_interval_mean":      {"keyboard", "interval_mean", 0},
	"scroll_event_count":          {"scroll", "event_count", 0},
	"scroll_velocity_mean":        {"scroll", "velocity_mean", 0},
	"scroll_consistency":          {"scroll", "consistency", 0},
	"page_load_time":              {"timing", "page_load_time", 0},
	"first_interaction_time":      {"timing", "first_interaction_time", 0},
	"session_duration":            {"timing", "session_duration", 0},
	"screen_width":                {"device", "screen_width", 0},
	"screen_height":               {"device", "screen_height", 0},
	"viewport_width":              {"device", "viewport_width", 0},
	"viewport_height":             {"device", "viewport_height", 0},
	"color_depth":                 {"device", "color_depth", 0},
	"timezone_offset":             {"device", "timezone_offset", 0},
	"touch_support":               {"device", "touch_support", 0},
	"device_memory":               {"device", "device_memory", 0},
	"hardware_concurrency":        {"device", "hardware_concurrency", 0},
	"font_count":                  {"device", "font_count", 0},
	"plugin_count":                {"device", "plugin_count", 0},
	"interaction_score":           {"behavioral", "interaction_score", 0},
	"movement_naturalness":        {"behavioral", "movement_naturalness", 0},
	"timing_regularity":           {"behavioral", "timing_regularity", 0},
	"human_likelihood":            {"behavioral", "human_likelihood", 0.5},
}

// Extract maps a raw behavioral telemetry payload to the fixed feature set.
// Pure and deterministic: the same payload always yields the same mapping.
func Extract(payload map[string]any) (map[string]float64, error) {
	if payload == nil {
		return nil, ErrInvalidPayload
	}

	features := make(map[string]float64, len(FeatureOrder))
	for _, name := range FeatureOrder {
		spec := fieldSpecs[name]
		features[name] = numericField(payload, spec)
	}
	return features, nil
}

func numericField(payload map[string]any, spec fieldSpec) float64 {
	section, ok := payload[spec.section].(map[string]any)
	if !ok {
		return spec.def
	}
	raw, ok := section[spec.key]
	if !ok || raw == nil {
		return spec.def
	}
	value, ok := coerceNumber(raw)
	if !ok {
		return spec.def
	}
	return value
}

func coerceNumber(raw any) (float64, bool) {
	switch v := raw.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case bool:
		if v {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}
