package strategy

func init() {
	MustRegister(Profile{
		Key:             NetworkFirst,
		Description:     "fetch origin first, fall back to any cached copy or the offline document",
		WriteStore:      StoreDynamic,
		OfflineFallback: true,
	})
	MustRegister(Profile{
		Key:         CacheFirst,
		Description: "serve cached copy when present, otherwise fetch and store",
		WriteStore:  StoreStatic,
		CacheFirst:  true,
	})
	MustRegister(Profile{
		Key:               StaleWhileRevalidate,
		Description:       "serve cached copy immediately and refresh it in the background",
		WriteStore:        StoreDynamic,
		CacheFirst:        true,
		BackgroundRefresh: true,
	})
}
