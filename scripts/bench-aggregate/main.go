// bench-aggregate measures merge and weekly aggregation time and heap use
// across a large synthetic daily history.
//
// Usage:
//
//	go run ./scripts/bench-aggregate --days 3650 --runs 5 \
//	  --profile-dir docs/profiles/aggregate
package main

import (
	"flag"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"runtime"
	"runtime/pprof"
	"time"

	"github.com/clonepulse/clonepulse/internal/dataset"
	"github.com/clonepulse/clonepulse/internal/weekly"
	"github.com/clonepulse/clonepulse/pkg/units"
)

func main() {
	days := flag.Int("days", 3650, "Days of synthetic history")
	runs := flag.Int("runs", 5, "Aggregation passes to time")
	batch := flag.Int("batch", 14, "Days per merge batch, mirroring fetch runs")
	profileDir := flag.String("profile-dir", "", "Directory to write heap profiles (empty = skip)")
	cpuProfile := flag.Bool("cpu-profile", false, "Write CPU profile to profile-dir/cpu.prof")
	seed := flag.Int64("seed", 1, "Seed for the synthetic traffic generator")

	flag.Parse()

	if *days <= 0 {
		log.Fatal("--days must be positive")
	}

	if *runs <= 0 {
		log.Fatal("--runs must be positive")
	}

	if *batch <= 0 {
		log.Fatal("--batch must be positive")
	}

	if *cpuProfile && *profileDir == "" {
		log.Fatal("--cpu-profile requires --profile-dir")
	}

	if *profileDir != "" {
		if err := os.MkdirAll(*profileDir, 0o755); err != nil {
			log.Fatalf("mkdir profile-dir: %v", err)
		}
	}

	if *cpuProfile {
		cpuPath := filepath.Join(*profileDir, "cpu.prof")

		cpuFile, cpuErr := os.Create(cpuPath)
		if cpuErr != nil {
			log.Fatalf("create cpu profile: %v", cpuErr)
		}
		defer cpuFile.Close()

		if startErr := pprof.StartCPUProfile(cpuFile); startErr != nil {
			log.Fatalf("start cpu profile: %v", startErr)
		}

		defer pprof.StopCPUProfile()

		log.Printf("CPU profiling enabled -> %s", cpuPath)
	}

	now := time.Now().UTC()
	rng := rand.New(rand.NewSource(*seed))

	takeSnapshot := func(label string) {
		runtime.GC()
		runtime.GC()

		var m runtime.MemStats
		runtime.ReadMemStats(&m)
		log.Printf("  [heap] %-20s inuse=%6.1f MiB  sys=%6.1f MiB  idle=%6.1f MiB",
			label, units.ToMiB(m.HeapInuse), units.ToMiB(m.HeapSys), units.ToMiB(m.HeapIdle))
	}

	writeHeapProfile := func(name string) {
		if *profileDir == "" {
			return
		}

		runtime.GC()
		runtime.GC()

		path := filepath.Join(*profileDir, name)

		f, ferr := os.Create(path)
		if ferr != nil {
			log.Printf("warning: create heap profile %s: %v", path, ferr)

			return
		}
		defer f.Close()

		if perr := pprof.WriteHeapProfile(f); perr != nil {
			log.Printf("warning: write heap profile %s: %v", path, perr)
		}
	}

	takeSnapshot("before_merge")

	// Merge in fetch-sized batches, the shape the ingest pipeline produces.
	incoming := syntheticHistory(rng, now, *days)
	batches := (len(incoming) + *batch - 1) / *batch

	mergeStart := time.Now()

	var daily []dataset.DailyRecord

	for lo := 0; lo < len(incoming); lo += *batch {
		hi := min(lo+*batch, len(incoming))
		daily = dataset.MergeDaily(daily, incoming[lo:hi])
	}

	log.Printf("merged %d days in %d batches in %v", len(daily), batches, time.Since(mergeStart))

	takeSnapshot("after_merge")
	writeHeapProfile("heap_after_merge.prof")

	var (
		elapsed time.Duration
		buckets []weekly.Bucket
	)

	for i := 0; i < *runs; i++ {
		runStart := time.Now()

		var aggErr error

		buckets, aggErr = weekly.Aggregate(daily, now)
		if aggErr != nil {
			log.Fatalf("aggregate: %v", aggErr)
		}

		d := time.Since(runStart)
		elapsed += d

		log.Printf("  run %d/%d: %d buckets in %v", i+1, *runs, len(buckets), d)
	}

	log.Printf("aggregate mean over %d runs: %v", *runs, elapsed/time.Duration(*runs))

	window, winErr := weekly.SelectWindow(buckets, weekly.Options{Weeks: 52}, now)
	if winErr != nil {
		log.Fatalf("select window: %v", winErr)
	}

	log.Printf("trailing year window holds %d buckets", len(window.Buckets))

	takeSnapshot("after_aggregate")
	writeHeapProfile("heap_after_aggregate.prof")
}

// syntheticHistory generates days of plausible traffic ending yesterday, so
// aggregation never trips the future-record guard.
func syntheticHistory(rng *rand.Rand, now time.Time, days int) []dataset.DailyRecord {
	records := make([]dataset.DailyRecord, 0, days)
	start := dataset.DayOf(now).AddDate(0, 0, -days)

	for i := 0; i < days; i++ {
		records = append(records, dataset.DailyRecord{
			Timestamp: start.AddDate(0, 0, i),
			Count:     rng.Intn(120),
			Uniques:   rng.Intn(40),
		})
	}

	return records
}
