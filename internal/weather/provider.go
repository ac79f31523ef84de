package weather

import "context"

// Client abstracts the paid upstream weather API.
type Client interface {
	Name() string
	FetchCurrent(ctx context.Context, city string) (Normalized, error)
}
