// Package domain models per-city hazard observations, safe zones and the
// hazard cost model used to weight evacuation routes.
//
// # Data Source
//
// Observations come from the upstream weather collector and risk-zone
// clustering step as one CSV row per city:
//
//	city, latitude, longitude, temperature_c, humidity,
//	wind_speed_kph, precipitation_mm, risk_level, risk_score
//
// risk_level is the cluster label ("Low", "Medium", "High"). risk_score is a
// composite of standardized weather features and may be negative. Either may
// be absent; see [Observation.BaseRisk].
//
// # Risk Surface
//
// [RiskSurface] answers "which observation applies here?" with a bounding-box
// test: a point matches when both |Δlon| and |Δlat| are within the tolerance
// (0.05° by default, about 5.5 km). When several observations match,
// [MatchNearest] keeps the closest one and [MatchLast] keeps the last one in
// load order.
//
// # Hazard Cost Model
//
// Each edge is weighted at its midpoint by the worst of four multipliers:
//
//	risk:    High 100 | Medium 10 | else 1
//	flood:   1 + precipitation_mm / 10
//	cyclone: 1 + wind_speed_kph / 20
//	quake:   High 50  | Medium 10 | else 1
//
//	weight = max(base_length, 1e-6) × max(risk, flood, cyclone, quake)
//
// The quake multiplier is a placeholder tied to the risk level; no seismic
// signal is available. Points with no matching observation get multiplier 1.
//
// # Safe Zones
//
// [Selector] places one safe zone per city, radius km away (1° ≈ 111 km), in
// the compass direction with the lowest estimate:
//
//	base_risk × wind_factor × precip_factor
//	  wind_factor   = 0.8 if wind_speed_kph > 20 else 1
//	  precip_factor = clamp(1 − precipitation_mm/100, 0.5, 1)
//	  ×0.9  when temperature_c > 30   and the heading is northern or eastern
//	  ×0.85 when precipitation_mm > 50 and the heading is northern or eastern
//
// Directions are evaluated N, NE, E, SE, S, SW, W, NW and ties keep the first.
package domain
