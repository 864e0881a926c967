package scene

// RenderMode selects what the screen pass shows.
type RenderMode int

const (
	// RenderModeNormal shows the composited image (F5).
	RenderModeNormal RenderMode = iota
	// RenderModeBackground shows the sky and terrain target (F6).
	RenderModeBackground
	// RenderModeWaterMap shows the water surface seen from the light (F7).
	RenderModeWaterMap
	// RenderModeWater shows the water target before compositing (F8).
	RenderModeWater
	// RenderModeTopView shows the orthographic terrain capture (F9).
	RenderModeTopView
)

// RenderModes lists every mode in key order, F5 through F9.
var RenderModes = []RenderMode{
	RenderModeNormal, RenderModeBackground, RenderModeWaterMap, RenderModeWater, RenderModeTopView,
}

func (m RenderMode) String() string {
	switch m {
	case RenderModeNormal:
		return "normal"
	case RenderModeBackground:
		return "background"
	case RenderModeWaterMap:
		return "water map"
	case RenderModeWater:
		return "water"
	case RenderModeTopView:
		return "top view"
	default:
		return "unknown"
	}
}

// DebugTarget returns the target whose color the debug view shows, or "" for RenderModeNormal.
func (m RenderMode) DebugTarget() string {
	switch m {
	case RenderModeBackground:
		return TargetBackground
	case RenderModeWaterMap:
		return TargetWaterMap
	case RenderModeWater:
		return TargetWater
	case RenderModeTopView:
		return TargetTopView
	default:
		return ""
	}
}

// passes returns the off-screen passes the mode depends on, in execution order.
func (m RenderMode) passes() []pass {
	switch m {
	case RenderModeWaterMap:
		return []pass{passWaterMap}
	case RenderModeTopView:
		return []pass{passTopView}
	case RenderModeBackground:
		return []pass{passWaterMap, passBackground}
	default:
		return []pass{passWaterMap, passTopView, passBackground, passWater}
	}
}
