package main

import (
	"fmt"
	"log/slog"
	"math"
	"os"
	"text/tabwriter"

	"github.com/akmonengine/impulse"
	"github.com/akmonengine/impulse/actor"
	"github.com/akmonengine/impulse/constraint"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	sceneName  string
	steps      int
	dt         float64
	configFile string
	plot       bool
	verbose    bool
	every      int
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "sandbox",
		Short: "headless rigid body scenes",
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "step a scene and report the bodies",
		RunE:  runScene,
	}
	runCmd.Flags().StringVar(&sceneName, "scene", "chain", "scene: chain, balls or sandbox")
	runCmd.Flags().IntVar(&steps, "steps", 600, "number of steps")
	runCmd.Flags().Float64Var(&dt, "dt", 1.0/60, "timestep")
	runCmd.Flags().StringVar(&configFile, "config", "", "settings file path (yaml)")
	runCmd.Flags().BoolVar(&plot, "plot", false, "plot the scene metric after the run")
	runCmd.Flags().BoolVar(&verbose, "verbose", false, "log every step")
	runCmd.Flags().IntVar(&every, "every", 60, "report the bodies every n steps")

	settingsCmd := &cobra.Command{
		Use:   "settings [path]",
		Short: "write the default settings as yaml",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				return impulse.SaveSettings(args[0], impulse.DefaultSettings())
			}
			data, err := yaml.Marshal(impulse.DefaultSettings())
			if err != nil {
				return err
			}
			_, err = os.Stdout.Write(data)
			return err
		},
	}

	rootCmd.AddCommand(runCmd, settingsCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// scene is the value plotted at each step for a populated world
type scene struct {
	caption string
	metric  func() float64
}

func runScene(cmd *cobra.Command, args []string) error {
	settings := impulse.DefaultSettings()
	if configFile != "" {
		var err error
		if settings, err = impulse.LoadSettings(configFile); err != nil {
			return err
		}
	}

	world := impulse.NewWorld(settings)
	world.Logger = slog.New(slog.DiscardHandler)
	if verbose {
		world.Logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}

	var s scene
	switch sceneName {
	case "chain":
		s = chainScene(world)
	case "balls":
		s = ballsScene(world)
	case "sandbox":
		ballsScene(world)
		s = chainScene(world)
	default:
		return fmt.Errorf("unknown scene: %s", sceneName)
	}
	addStandardSandbox(world)

	world.Events.Subscribe(impulse.COLLISION_ENTER, func(e impulse.Event) {
		enter := e.(impulse.CollisionEnterEvent)
		world.Logger.Debug("collision enter", "a", enter.BodyA, "b", enter.BodyB)
	})

	history := make([]float64, 0, steps)
	for step := 1; step <= steps; step++ {
		world.Step(dt)
		if err := world.Validate(); err != nil {
			return err
		}
		history = append(history, s.metric())

		if every > 0 && step%every == 0 {
			report(world, step)
		}
	}

	if plot && len(history) > 0 {
		fmt.Println(asciigraph.Plot(history,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(s.caption),
		))
	}
	return nil
}

func report(world *impulse.World, step int) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "step %d\tt=%.3fs\tcontacts=%d\n", step, float64(step)*dt, len(world.Contacts()))
	fmt.Fprintln(w, "BODY\tPOSITION\tSPEED")
	for h, body := range world.Bodies.All() {
		if body.HasInfiniteMass() {
			continue
		}
		p := body.Transform.Position
		fmt.Fprintf(w, "%v\t(%.3f, %.3f, %.3f)\t%.3f\n", h, p.X(), p.Y(), p.Z(), body.Velocity.Len())
	}
	w.Flush()
}

func chainScene(world *impulse.World) scene {
	const links = 5
	shape := &actor.Box{HalfExtents: mgl64.Vec3{0.25, 0.25, 0.25}}

	anchor := actor.NewStaticBody(
		actor.Transform{Position: mgl64.Vec3{0, links + 3, 5}, Rotation: mgl64.QuatIdent()},
		shape,
	)
	anchor.Elasticity = 1
	previous := world.AddBody(anchor)

	joints := make([]*constraint.Distance, 0, links)
	for range links {
		at := world.Bodies.Get(previous).Transform.Position

		link := actor.NewRigidBody(
			actor.Transform{Position: at.Add(mgl64.Vec3{1, 0, 0}), Rotation: mgl64.QuatIdent()},
			shape,
			1,
		)
		link.Elasticity = 1
		h := world.AddBody(link)

		// both anchors sit on the previous body's centre
		joints = append(joints, world.AddJoint(previous, h, at, at))
		previous = h
	}

	return scene{
		caption: "total joint error (m)",
		metric: func() float64 {
			total := 0.0
			for _, joint := range joints {
				total += math.Abs(joint.JointError(world.Bodies))
			}
			return total
		},
	}
}

func ballsScene(world *impulse.World) scene {
	const radius = 0.5
	shape := &actor.Sphere{Radius: radius}

	var balls []*actor.RigidBody
	for x := range 6 {
		for z := range 6 {
			ball := actor.NewRigidBodyFromDensity(
				actor.Transform{
					Position: mgl64.Vec3{(float64(x) - 1) * radius * 2.5, 10, (float64(z) - 1) * radius * 2.5},
					Rotation: mgl64.QuatIdent(),
				},
				shape,
				1,
			)
			ball.Elasticity, ball.Friction = 0.5, 0.5
			world.AddBody(ball)
			balls = append(balls, ball)
		}
	}

	return scene{
		caption: "mean height (m)",
		metric: func() float64 {
			sum := 0.0
			for _, ball := range balls {
				sum += ball.Transform.Position.Y()
			}
			return sum / float64(len(balls))
		},
	}
}

// addStandardSandbox surrounds the origin with a ground and four walls
func addStandardSandbox(world *impulse.World) {
	ground := actor.NewStaticBody(
		actor.Transform{Position: mgl64.Vec3{0, -0.5, 0}, Rotation: mgl64.QuatIdent()},
		&actor.Box{HalfExtents: mgl64.Vec3{50, 0.5, 25}},
	)
	ground.Elasticity, ground.Friction = 0.5, 0.5
	world.AddBody(ground)

	walls := []struct {
		position mgl64.Vec3
		shape    *actor.Box
	}{
		{mgl64.Vec3{50, 0, 0}, &actor.Box{HalfExtents: mgl64.Vec3{0.5, 5, 25}}},
		{mgl64.Vec3{-50, 0, 0}, &actor.Box{HalfExtents: mgl64.Vec3{0.5, 5, 25}}},
		{mgl64.Vec3{0, 0, 25}, &actor.Box{HalfExtents: mgl64.Vec3{50, 5, 0.5}}},
		{mgl64.Vec3{0, 0, -25}, &actor.Box{HalfExtents: mgl64.Vec3{50, 5, 0.5}}},
	}
	for _, w := range walls {
		wall := actor.NewStaticBody(actor.Transform{Position: w.position, Rotation: mgl64.QuatIdent()}, w.shape)
		wall.Elasticity = 0.5
		world.AddBody(wall)
	}
}
