// Package timeline reads editorial sequence files into shot boundaries.
//
// Two formats are supported: CMX3600 EDL, which carries no frame rate and is
// read at a caller-supplied or default rate, and OpenTimelineIO JSON, which
// embeds its rate. Record-side frames are relative to the start of the
// timeline; source-side frames are the absolute source timecode frames.
package timeline
