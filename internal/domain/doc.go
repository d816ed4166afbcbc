// Package domain models reported crime incidents and the neighborhoods they
// are attributed to.
//
// # Data Source
//
// Two geospatial collections feed every render pass: a neighborhood boundary
// collection (one polygon per named barrio) and an incident collection (one
// point per reported crime). Both are loaded once per session by the geodata
// adapter and treated as read-only afterwards.
//
// # Incident Conventions
//
// Column names follow the municipal export the dashboard was built against:
//
//	id, tipo_crimen, fecha, hora, barrio, edad, sexo, longitud, latitud,
//	habitante_calle, prostitucion, lgtbi, grupo_etnico
//
// Dates ("fecha") are calendar days. Values that fail to parse are kept in the
// dataset but can never satisfy a date range.
//
// Time of day ("hora") is an optional "HH:MM" string. Longer values such as
// "23:45:00" are truncated to five characters before parsing; anything that
// still fails to parse is excluded from hour filtering only. When the column
// is absent from the whole dataset the hour predicate is skipped.
//
// Social flags are 0/1 columns. A flag column that is missing from the dataset
// imposes no constraint even when the caller asks for it.
//
// # Neighborhood Matching
//
// Incidents are attributed to a neighborhood by exact, case-sensitive string
// equality between Incident.Neighborhood and Neighborhood.Name. Unmatched
// incidents still render as points but never count toward a neighborhood.
//
// # Severity Classification
//
// Neighborhood counts map to display colors through a [ColorScheme]:
//
//	Fixed:      0 green | 1–5 yellow | 6–15 orange | >15 red
//	Continuous: (count - min) / (max - min) through a sequential colormap,
//	            defined as 0 when every neighborhood has the same count.
package domain
