package catalog_test

import (
	"context"
	"testing"
	"time"

	"cogstream/internal/catalog"
	"cogstream/internal/testsupport"
)

func TestItemsHonorsRangeAndOrder(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenCatalog(t, cfg)
	ctx := context.Background()

	day := func(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 12, 0, 0, 0, time.UTC) }
	n, err := store.Upsert(ctx, "scenes", []catalog.Dataset{
		{Item: "c", AcquiredAt: day(2019, 2, 1)},
		{Item: "a", AcquiredAt: day(2019, 1, 31)},
		{Item: "b", AcquiredAt: day(2019, 1, 5)},
		{Item: "z", AcquiredAt: day(2020, 1, 1)},
	})
	if err != nil || n != 4 {
		t.Fatalf("Upsert = %d, %v", n, err)
	}
	if _, err := store.Upsert(ctx, "other", []catalog.Dataset{{Item: "a", AcquiredAt: day(2019, 1, 2)}}); err != nil {
		t.Fatal(err)
	}

	items, err := store.Items(ctx, "scenes", catalog.Range{
		From: time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2019, 2, 1, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("Items: %v", err)
	}
	if len(items) != 2 || items[0] != "b" || items[1] != "a" {
		t.Fatalf("items = %v, want [b a]", items)
	}

	all, err := store.Items(ctx, "scenes", catalog.Range{})
	if err != nil || len(all) != 4 {
		t.Fatalf("unbounded items = %v, %v", all, err)
	}
	if count, _ := store.Count(ctx, "scenes"); count != 4 {
		t.Fatalf("count = %d", count)
	}
}

func TestUpsertReplacesAcquisitionTime(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenCatalog(t, cfg)
	ctx := context.Background()

	if _, err := store.Upsert(ctx, "p", []catalog.Dataset{{Item: "a", AcquiredAt: time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)}}); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Upsert(ctx, "p", []catalog.Dataset{{Item: "a", AcquiredAt: time.Date(2010, 1, 1, 0, 0, 0, 0, time.UTC)}}); err != nil {
		t.Fatal(err)
	}
	items, err := store.Items(ctx, "p", catalog.Range{From: time.Date(2009, 1, 1, 0, 0, 0, 0, time.UTC)})
	if err != nil || len(items) != 1 {
		t.Fatalf("items = %v, %v", items, err)
	}
	if _, err := store.Upsert(ctx, "", nil); err == nil {
		t.Fatal("expected error for empty product")
	}
	if _, err := store.Upsert(ctx, "p", []catalog.Dataset{{Item: ""}}); err == nil {
		t.Fatal("expected error for empty item")
	}
}

func TestReopenKeepsData(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store, err := catalog.Open(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := store.Upsert(context.Background(), "p", []catalog.Dataset{{Item: "a", AcquiredAt: time.Now()}}); err != nil {
		t.Fatal(err)
	}
	_ = store.Close()

	reopened := testsupport.MustOpenCatalog(t, cfg)
	if n, _ := reopened.Count(context.Background(), "p"); n != 1 {
		t.Fatalf("count after reopen = %d", n)
	}
}

func TestDatasetsFromFiles(t *testing.T) {
	datasets, skipped := catalog.DatasetsFromFiles([]string{
		"/d/LS_WATER_3577_9_-39_20180506102018000000_v1.nc",
		"/d/readme.txt",
	})
	if len(datasets) != 1 || len(skipped) != 1 {
		t.Fatalf("datasets = %v, skipped = %v", datasets, skipped)
	}
	if want := time.Date(2018, 5, 6, 10, 20, 18, 0, time.UTC); !datasets[0].AcquiredAt.Equal(want) {
		t.Fatalf("acquired = %s, want %s", datasets[0].AcquiredAt, want)
	}
}
