package weather

// Payload is the normalized weather snapshot served to clients and held in the
// cache. It is a plain value, so every copy is an independent clone.
type Payload struct {
	Temp      float64 `json:"temp"`
	TempMax   float64 `json:"temp_max"`
	TempMin   float64 `json:"temp_min"`
	Humidity  float64 `json:"humidity"`
	Pressure  float64 `json:"pressure"`
	WindSpeed float64 `json:"wind_speed"`
}

// Normalized is what a weather client returns for a current-conditions query.
type Normalized struct {
	Payload

	// Timestamp is the authoritative upstream time in unix seconds.
	Timestamp uint64 `json:"timestamp"`
}
