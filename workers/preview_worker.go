package workers

import (
	"fmt"
	"log"
	"os"
	"sync"

	"github.com/camden-git/labelsysbackend/config"
	"github.com/camden-git/labelsysbackend/models"
	"github.com/camden-git/labelsysbackend/repository"
	"github.com/camden-git/labelsysbackend/utils"
)

// PreviewJob is one image whose preview and EXIF data should be generated
type PreviewJob struct {
	ImageID  uint
	FilePath string
}

// PreviewGenerator runs a pool of workers that generate bounded-size JPEG
// previews for imported images and record EXIF capture times along the way.
// Failures are recorded per-image and never abort the pool.
type PreviewGenerator struct {
	JobQueue  chan PreviewJob
	Config    config.Config
	ImageRepo repository.ImageRepositoryInterface
	Wg        sync.WaitGroup
	StopChan  chan struct{}
	Pending   map[uint]bool
	Mutex     sync.Mutex
}

// NewPreviewGenerator starts the worker pool
func NewPreviewGenerator(cfg config.Config, imageRepo repository.ImageRepositoryInterface, queueSize, numWorkers int) *PreviewGenerator {
	if numWorkers <= 0 {
		numWorkers = 1
	}
	if queueSize <= 0 {
		queueSize = 100
	}

	gen := &PreviewGenerator{
		JobQueue:  make(chan PreviewJob, queueSize),
		Config:    cfg,
		ImageRepo: imageRepo,
		StopChan:  make(chan struct{}),
		Pending:   make(map[uint]bool),
	}

	gen.Wg.Add(numWorkers)
	for i := 0; i < numWorkers; i++ {
		go gen.worker(i)
	}
	log.Printf("started %d preview worker(s) with queue size %d", numWorkers, queueSize)

	return gen
}

func (pg *PreviewGenerator) worker(id int) {
	defer pg.Wg.Done()
	log.Printf("preview worker %d started", id)
	for {
		select {
		case job, ok := <-pg.JobQueue:
			if !ok {
				log.Printf("preview worker %d stopping: job queue closed", id)
				return
			}
			pg.process(id, job)

			pg.Mutex.Lock()
			delete(pg.Pending, job.ImageID)
			pg.Mutex.Unlock()

		case <-pg.StopChan:
			log.Printf("preview worker %d stopping: stop signal received", id)
			return
		}
	}
}

func (pg *PreviewGenerator) process(workerID int, job PreviewJob) {
	if err := pg.ImageRepo.MarkPreviewProcessing(job.ImageID); err != nil {
		log.Printf("Worker %d: ERROR marking preview processing for image %d: %v. Skipping job.", workerID, job.ImageID, err)
		return
	}

	var taskErr error
	var previewPathPtr *string
	var takenAt *int64
	var widthPtr, heightPtr *int

	if _, statErr := os.Stat(job.FilePath); statErr != nil {
		taskErr = fmt.Errorf("original file not accessible: %w", statErr)
		log.Printf("Worker %d: skipping preview for image %d: %v", workerID, job.ImageID, taskErr)
	} else {
		if w, h, dimErr := utils.ProbeDimensions(job.FilePath); dimErr == nil {
			widthPtr = &w
			heightPtr = &h
		}

		takenAt, _ = utils.GetTakenAt(job.FilePath)

		previewPath, genErr := utils.GeneratePreview(job.FilePath, pg.Config.PreviewsPath, pg.Config.PreviewMaxSize)
		if genErr != nil {
			taskErr = fmt.Errorf("preview generation failed: %w", genErr)
			log.Printf("Worker %d: ERROR %v", workerID, taskErr)
		} else {
			previewPathPtr = &previewPath
		}
	}

	if err := pg.ImageRepo.UpdatePreviewResult(job.ImageID, previewPathPtr, takenAt, widthPtr, heightPtr, taskErr); err != nil {
		log.Printf("Worker %d: ERROR updating preview result for image %d: %v", workerID, job.ImageID, err)
	}
}

// Enqueue queues one image for preview generation, dropping duplicates and
// refusing quietly when the queue is full (a later sweep will pick it up)
func (pg *PreviewGenerator) Enqueue(image models.Image) {
	pg.Mutex.Lock()
	if pg.Pending[image.ID] {
		pg.Mutex.Unlock()
		return
	}
	pg.Pending[image.ID] = true
	pg.Mutex.Unlock()

	select {
	case pg.JobQueue <- PreviewJob{ImageID: image.ID, FilePath: image.FilePath}:
	default:
		pg.Mutex.Lock()
		delete(pg.Pending, image.ID)
		pg.Mutex.Unlock()
		log.Printf("preview queue full, image %d left for the next sweep", image.ID)
	}
}

// QueuePendingPreviews sweeps the store for images whose preview task has not
// run yet and enqueues them. Called at startup and after scans/imports.
func (pg *PreviewGenerator) QueuePendingPreviews() {
	images, err := pg.ImageRepo.GetImagesRequiringPreviews()
	if err != nil {
		log.Printf("ERROR sweeping for pending previews: %v", err)
		return
	}
	for _, image := range images {
		pg.Enqueue(image)
	}
	if len(images) > 0 {
		log.Printf("queued %d image(s) for preview generation", len(images))
	}
}

// Stop signals all workers to exit and waits for them
func (pg *PreviewGenerator) Stop() {
	close(pg.StopChan)
	pg.Wg.Wait()
}
