package logging

import "go.uber.org/zap"

// Fields turns a category, subcategory and extras into zap fields.
func Fields(cat Category, sub SubCategory, extra map[ExtraKey]any) []zap.Field {
	fields := make([]zap.Field, 0, len(extra)+2)
	fields = append(fields, zap.String("category", string(cat)), zap.String("subCategory", string(sub)))

	for k, v := range extra {
		fields = append(fields, zap.Any(string(k), v))
	}

	return fields
}

// Named returns a child logger tagged with a category.
func Named(logger *zap.Logger, cat Category) *zap.Logger {
	return logger.With(zap.String("category", string(cat)))
}
