// Package listview renders one page of records as a scrollable row list for
// Bubble Tea screens. Only the rows inside the viewport are rendered, and the
// cursor supports arrow keys, page up/down, home/end and j/k.
package listview
