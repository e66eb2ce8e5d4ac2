package nodes

import "visionmesh/internal/model"

func cfgString(cfg map[string]interface{}, key, def string) string {
	if v, ok := cfg[key]; ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	return def
}

func cfgFloat(cfg map[string]interface{}, key string, def float64) float64 {
	if v, ok := cfg[key]; ok {
		switch n := v.(type) {
		case float64:
			return n
		case int:
			return float64(n)
		}
	}
	return def
}

func cfgInt(cfg map[string]interface{}, key string, def int) int {
	return int(cfgFloat(cfg, key, float64(def)))
}

func cfgBool(cfg map[string]interface{}, key string, def bool) bool {
	if v, ok := cfg[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return def
}

func cfgStringSlice(cfg map[string]interface{}, key string) []string {
	v, ok := cfg[key]
	if !ok {
		return nil
	}
	raw, ok := v.([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, e := range raw {
		if s, ok := e.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// cfgPoints reads a [[x,y], ...] shaped config value.
func cfgPoints(cfg map[string]interface{}, key string) [][2]float64 {
	v, ok := cfg[key]
	if !ok {
		return nil
	}
	raw, ok := v.([]interface{})
	if !ok {
		return nil
	}
	out := make([][2]float64, 0, len(raw))
	for _, e := range raw {
		pair, ok := e.([]interface{})
		if !ok || len(pair) != 2 {
			continue
		}
		x, xok := toFloat(pair[0])
		y, yok := toFloat(pair[1])
		if xok && yok {
			out = append(out, [2]float64{x, y})
		}
	}
	return out
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	}
	return 0, false
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func cloneDetections(in []model.Detection) []model.Detection {
	out := make([]model.Detection, len(in))
	copy(out, in)
	return out
}
