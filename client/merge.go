package client

import "food-order-service/models"

// Merge combines the server's list with the local fallback copy. Orders are
// matched by Reference and the server copy wins; local orders the server does
// not know about are appended after the server list.
func Merge(server, local []models.Order) []models.Order {
	seen := make(map[string]struct{}, len(server))
	out := make([]models.Order, 0, len(server)+len(local))
	for _, o := range server {
		if o.Reference != "" {
			seen[o.Reference] = struct{}{}
		}
		out = append(out, o)
	}
	for _, o := range local {
		if _, dup := seen[o.Reference]; dup {
			continue
		}
		seen[o.Reference] = struct{}{}
		out = append(out, o)
	}
	return out
}

// Concat is the naive combination: server orders followed by every local
// order, duplicates included.
func Concat(server, local []models.Order) []models.Order {
	out := make([]models.Order, 0, len(server)+len(local))
	out = append(out, server...)
	return append(out, local...)
}
