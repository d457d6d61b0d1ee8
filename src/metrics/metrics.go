package metrics

import (
	"time"

	client "github.com/influxdata/influxdb1-client/v2"
	"github.com/sirupsen/logrus"

	"github.com/hypercube-lab/hypercube/src/config"
)

// maxBatch is the number of buffered points that forces a flush before
// the rate tick.
const maxBatch = 64

// Reporter submits measurement datapoints to an InfluxDB endpoint.
// Submission is fire-and-forget: points are buffered on a channel and
// written by a background goroutine, so a slow or absent endpoint never
// stalls the caller. An unconfigured Reporter degrades to log lines.
type Reporter struct {
	client client.Client
	db     string
	rate   time.Duration
	logger *logrus.Entry

	points  chan *client.Point
	flushCh chan chan struct{}
	done    chan struct{}
}

// NewReporter builds a Reporter from conf and starts its writer. When no
// metrics endpoint is configured the Reporter is still usable; points
// only reach the log.
func NewReporter(conf *config.Config, logger *logrus.Entry) (*Reporter, error) {
	rate := conf.MetricsRate
	if rate <= 0 {
		rate = config.DefaultMetricsRate
	}

	r := &Reporter{
		db:      conf.MetricsDatabase,
		rate:    rate,
		logger:  logger,
		points:  make(chan *client.Point, maxBatch),
		flushCh: make(chan chan struct{}),
		done:    make(chan struct{}),
	}

	if conf.MetricsEndpoint != "" {
		c, err := client.NewHTTPClient(client.HTTPConfig{
			Addr:     conf.MetricsEndpoint,
			Username: conf.MetricsUsername,
			Password: conf.MetricsPassword,
			Timeout:  time.Second,
		})
		if err != nil {
			return nil, err
		}
		r.client = c
	}

	go r.run()

	return r, nil
}

// Submit queues one datapoint. It never blocks; when the buffer is full
// the point is dropped with a log line.
func (r *Reporter) Submit(measurement string, tags map[string]string, fields map[string]interface{}) {
	pt, err := client.NewPoint(measurement, tags, fields, time.Now())
	if err != nil {
		r.logger.WithField("measurement", measurement).Warn("dropping malformed datapoint: ", err)
		return
	}

	select {
	case r.points <- pt:
	default:
		r.logger.WithField("measurement", measurement).Warn("metrics buffer full, dropping datapoint")
	}
}

// Flush blocks until every point queued before the call has been written.
func (r *Reporter) Flush() {
	ack := make(chan struct{})
	select {
	case r.flushCh <- ack:
		<-ack
	case <-r.done:
	}
}

// Close flushes outstanding points and stops the writer.
func (r *Reporter) Close() {
	r.Flush()
	close(r.done)
	if r.client != nil {
		r.client.Close()
	}
}

func (r *Reporter) run() {
	ticker := time.NewTicker(r.rate)
	defer ticker.Stop()

	batch := make([]*client.Point, 0, maxBatch)

	for {
		select {
		case pt := <-r.points:
			batch = append(batch, pt)
			if len(batch) >= maxBatch {
				batch = r.write(batch)
			}
		case <-ticker.C:
			batch = r.write(batch)
		case ack := <-r.flushCh:
			batch = r.drain(batch)
			batch = r.write(batch)
			close(ack)
		case <-r.done:
			return
		}
	}
}

func (r *Reporter) drain(batch []*client.Point) []*client.Point {
	for {
		select {
		case pt := <-r.points:
			batch = append(batch, pt)
		default:
			return batch
		}
	}
}

func (r *Reporter) write(batch []*client.Point) []*client.Point {
	if len(batch) == 0 {
		return batch
	}

	for _, pt := range batch {
		r.logger.WithField("prefix", "metrics").Debug(pt.String())
	}

	if r.client != nil {
		bp, err := client.NewBatchPoints(client.BatchPointsConfig{Database: r.db})
		if err == nil {
			bp.AddPoints(batch)
			err = r.client.Write(bp)
		}
		if err != nil {
			r.logger.Warn("writing datapoints: ", err)
		}
	}

	return batch[:0]
}
