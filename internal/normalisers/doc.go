// Package normalisers provides the registry that maps each source type to
// its Normaliser. Implementations live in sub-packages, one per source
// family; the notion sub-package covers every Notion payload kind.
//
// Normalisers are registered with the Registry at startup.
package normalisers
