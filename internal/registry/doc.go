// Package registry keeps track of content items and their lifecycle.
//
// Every item moves through None → Subscribed → Installing → Installed.
// Subscribe registers interest, Install drives a transfer through the
// Installer, and Unsubscribe removes the item, cancels its install and
// deletes its files. LoadFromDisk rebuilds the collection from the numeric
// directories under the content root, so installs survive restarts.
//
// Results are reported to the host platform through a Notifier, always
// outside the registry lock.
//
//	reg, err := registry.New(registry.Options{
//	    Root:       "/srv/content",
//	    Downloader: orchestrator,
//	    Notifier:   registry.NotifierFuncs{DownloadResult: onResult},
//	})
//
//	reg.Subscribe(2463582957)
//	res := reg.Install(ctx, 2463582957)
package registry
