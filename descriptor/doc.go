// Package descriptor provides the partner and provider identifiers an iPlug
// is responsible for. Descriptor-driven facet counters synthesize partner and
// provider classes from them instead of reading the index.
package descriptor
