// Package descriptor finds the on-disk metadata file that describes a
// library entity and reports when it was last written.
//
// Each entity kind has a fixed descriptor file name resolved inside the
// entity's metadata directory (person.xml for people). Lookups always stat
// the filesystem; nothing is cached, so consecutive calls may disagree.
package descriptor
