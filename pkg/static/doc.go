/*
Package static renders pages once into files.

RenderToFile runs a page's entry logic against an in-memory sink and writes
the captured document to disk atomically. Build does the same for every page
below a directory, producing a tree of index.html files that can be served
without the engine.
*/
package static
