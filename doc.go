// Package livecache keeps query results that live in local memory in sync
// with changes pushed over Pub/Sub.
//
// A live query fetches a list once, then reconciles it with every data message
// published under its event name: records are identified, merged or appended
// on upsert, dropped on remove, optionally re-read from a canonical store
// first. Queries can join a named group to receive messages scoped to it.
//
// Basic usage:
//
//	c, err := livecache.New(livecache.DefaultConfig())
//	if err != nil {
//		return err
//	}
//	defer c.Close()
//
//	orders, err := livecache.Watch(ctx, c, livecache.QueryOptions[livecache.Record]{
//		Key:   livecache.Key{"orders", shopID},
//		Event: "orders",
//		Group: "shop:" + shopID,
//		Fetch: livecache.Fetcher[livecache.Record](c, "orders:"+shopID),
//	})
//	if err != nil {
//		return err
//	}
//	defer orders.Close()
//
//	orders.Observe(func(list []livecache.Record) { render(list) })
package livecache
