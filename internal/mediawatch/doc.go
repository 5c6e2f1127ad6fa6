// Package mediawatch watches kernel udev events for inserted media carrying
// package sources. Repositories can live on optical or removable media, so an
// insertion is a good moment to refresh repository metadata without polling.
package mediawatch
