package main

import (
	"flag"
	"log"
	"math/rand"

	"recurrent-gan/checkpoints"
	"recurrent-gan/dataset"
	"recurrent-gan/layers"
	"recurrent-gan/model"
	gantensor "recurrent-gan/tensor"
	"recurrent-gan/training"
)

func main() {
	nbEpoch := flag.Int("nb_epoch", 10, "Number of training epochs")
	nbBatch := flag.Int("nb_batch", 32, "Batch size")
	plotCount := flag.Int("plot", 0, "Number of digits to render after training, 0 disables plotting")
	plotDir := flag.String("plot_dir", "plots", "Directory for rendered PNGs")
	binarize := flag.Bool("binarize", false, "Binarize pixels to -1/1 instead of affine scaling")
	nbLatent := flag.Int("nb_latent", 100, "Latent vector dimension")
	savePath := flag.String("save_path", "", "Write a checkpoint here after training")
	saveFormat := flag.String("save_format", "json", "Checkpoint format: json or binary")
	genModeFlag := flag.String("gen_mode", "none", "Generator attention mode: none, 1d or 2d")
	disModeFlag := flag.String("dis_mode", "none", "Discriminator attention mode: none, 1d or 2d")
	latentTypeFlag := flag.String("latent_type", "uniform", "Latent distribution: uniform or normal")
	lr := flag.Float64("lr", 0.001, "Adam learning rate")
	beta := flag.Float64("beta", 0.5, "Adam beta1")
	seed := flag.Int64("seed", 42, "PRNG seed")
	dataDir := flag.String("data_dir", "data", "Directory holding the MNIST idx files")

	flag.Parse()

	// All configuration is validated before any data is read.
	genMode, err := layers.ParseMode("gen_mode", *genModeFlag)
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	disMode, err := layers.ParseMode("dis_mode", *disModeFlag)
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	latentType, err := training.ParseLatentType("latent_type", *latentTypeFlag)
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	format, err := checkpoints.ParseFormat("save_format", *saveFormat)
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	if *plotCount < 0 {
		log.Fatalf("invalid configuration: plot count %d must not be negative", *plotCount)
	}
	var plotter *training.Plotter
	if *plotCount > 0 {
		plotter, err = training.NewPlotter(*plotDir)
		if err != nil {
			log.Fatalf("plotting unavailable: %v", err)
		}
	}

	rng := rand.New(rand.NewSource(*seed))

	gen, err := model.BuildGenerator(*nbLatent, genMode, rng)
	if err != nil {
		log.Fatalf("failed to build generator: %v", err)
	}
	dis, err := model.BuildDiscriminator(disMode, rng)
	if err != nil {
		log.Fatalf("failed to build discriminator: %v", err)
	}

	trainRaw, _, err := dataset.Load(*dataDir)
	if err != nil {
		log.Fatalf("failed to load MNIST from %s: %v", *dataDir, err)
	}
	split, err := dataset.Normalize(trainRaw, *binarize)
	if err != nil {
		log.Fatalf("failed to normalize dataset: %v", err)
	}
	log.Printf("loaded %d training images (binarize=%v)", split.Len(), *binarize)

	images, err := split.ImageTensor()
	if err != nil {
		log.Fatalf("failed to assemble image tensor: %v", err)
	}
	labels, err := split.LabelTensor()
	if err != nil {
		log.Fatalf("failed to assemble label tensor: %v", err)
	}

	inputs, err := training.NewTrainingInputs(genMode, disMode, latentType, images, labels)
	if err != nil {
		log.Fatalf("failed to assemble training inputs: %v", err)
	}
	log.Printf("training inputs: %v", inputs.SlotNames())

	trainer, err := training.NewAdversarialTrainer(gen, dis, training.DefaultTargets(), rng)
	if err != nil {
		log.Fatalf("failed to create trainer: %v", err)
	}
	cfg := training.DefaultOptimizerConfig()
	cfg.LearningRate = *lr
	cfg.Beta1 = *beta
	if err := trainer.Compile(cfg); err != nil {
		log.Fatalf("failed to compile trainer: %v", err)
	}

	fitCfg := training.FitConfig{
		Epochs:    *nbEpoch,
		BatchSize: *nbBatch,
		Shuffle:   true,
		Verbose:   true,
	}
	if err := trainer.Fit(inputs, fitCfg); err != nil {
		log.Fatalf("training failed: %v", err)
	}

	if plotter != nil {
		if err := renderPlots(trainer, plotter, gen, split, *plotCount); err != nil {
			log.Fatalf("plotting failed: %v", err)
		}
		log.Printf("wrote plots to %s", plotter.Dir())
	}

	if *savePath != "" {
		metrics := trainer.GetMetrics()
		last := metrics[len(metrics)-1]
		cp := checkpoints.Capture(gen, dis, trainer.GeneratorOptimizer(), trainer.DiscriminatorOptimizer(), checkpoints.TrainingState{
			Epoch:        last.Epoch,
			DisLoss:      last.DisLoss,
			GenLoss:      last.GenLoss,
			LearningRate: *lr,
		})
		saver := checkpoints.NewCheckpointSaver(format)
		if err := saver.SaveCheckpoint(cp, *savePath); err != nil {
			log.Fatalf("failed to save checkpoint: %v", err)
		}
		log.Printf("saved %s checkpoint to %s", format, *savePath)
	}
}

// renderPlots draws count generated digits plus the loss curves.
// Class-conditioned generators cycle through the class labels;
// attention generators get the first count training images as
// references.
func renderPlots(trainer *training.AdversarialTrainer, plotter *training.Plotter, gen *model.Generator, split *dataset.Split, count int) error {
	req := training.SampleRequest{Count: count}
	switch gen.Mode() {
	case layers.Mode1D:
		classData := make([]float64, count)
		for i := range classData {
			classData[i] = float64(i % model.NumClasses)
		}
		labels, err := gantensor.NewTensor([]int{count, 1}, classData)
		if err != nil {
			return err
		}
		req.Labels = labels
	case layers.Mode2D:
		refs, err := refImages(split, count)
		if err != nil {
			return err
		}
		req.Refs = refs
	}

	samples, err := trainer.Sample(req)
	if err != nil {
		return err
	}
	if err := plotter.SaveSamples(samples, "digit"); err != nil {
		return err
	}
	return plotter.SaveLossCurves(trainer.GetMetrics(), "loss.png")
}

// refImages stacks the first n training images into one tensor
func refImages(split *dataset.Split, n int) (*gantensor.Tensor, error) {
	var first *gantensor.Tensor
	for i := 0; i < n; i++ {
		img, _, err := split.Get(i)
		if err != nil {
			return nil, err
		}
		if first == nil {
			shape := append([]int{n}, img.Shape...)
			first, err = gantensor.Zeros(shape)
			if err != nil {
				return nil, err
			}
		}
		copy(first.Data[i*img.NumElems:], img.Data)
	}
	return first, nil
}
