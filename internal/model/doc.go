// Package model defines the core data structures used throughout
// the workshop-downloader application.
//
// # Item
//
// Item represents one unit of installable content tracked by the registry:
//
//	item := model.NewItem("/content", 2463582957, model.StateSubscribed)
//	fmt.Println(item.Path)  // "/content/2463582957"
//	fmt.Println(item.State) // "subscribed"
//
// # Lifecycle
//
// Items move through a fixed set of states:
//
//	None → Subscribed → Installing → Installed
//
// State.HostFlags maps a state onto the bit flags the host platform expects
// when it asks for an item's state.
//
// # Paths
//
// An item's local path is never chosen independently. It is always derived
// from the content root and the item id:
//
//	model.LocalPath("/content", 42)   // "/content/42"
//	model.ArchivePath("/content", 42) // "/content/42.zip"
//
// # Identifiers
//
// ParseItemID accepts either a bare decimal id or a page URL carrying an
// id query parameter:
//
//	id, _ := model.ParseItemID("https://example.com/filedetails/?id=42")
package model
