package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/mastercactapus/hpglaser/hpgl"
	"github.com/mastercactapus/hpglaser/job"
	"github.com/mastercactapus/hpglaser/machine"
	"github.com/spf13/cobra"
)

var errJobStopped = errors.New("job stopped before completion")

func newRunCommand(a *app) *cobra.Command {
	var (
		tf transformFlags
		sf sessionFlags
	)
	cmd := &cobra.Command{
		Use:   "run FILE",
		Short: "Send an HPGL file to the controller",
		Long: "Send an HPGL file to the controller.\n\n" +
			"Interrupt stops the job and switches the laser off. " +
			"SIGUSR1 toggles pause on unix systems.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tf.defaults(a.cfg)
			res, err := loadFile(args[0], hpgl.ParseOptions{Segments: a.cfg.Job.Segments})
			if err != nil {
				return err
			}
			res, err = tf.apply(res, a.log)
			if err != nil {
				return err
			}

			conn, err := sf.open(cmd.Context(), a)
			if err != nil {
				return err
			}
			defer conn.Close()

			m := machine.New(conn, a.cfg.MachineOptions(a.log))
			m.Replace(res)
			return runJob(m, cmd.ErrOrStderr())
		},
	}
	tf.bind(cmd.Flags())
	sf.bind(cmd.Flags())
	return cmd
}

// runJob starts the loaded drawing and reports on w until it finishes
// and the machine is idle again.
func runJob(m *machine.Machine, w io.Writer) error {
	events, cancel := m.Subscribe()
	defer cancel()
	defer m.Wait()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)
	defer signal.Stop(stop)
	pause := make(chan os.Signal, 1)
	if sigs := pauseSignals(); len(sigs) > 0 {
		signal.Notify(pause, sigs...)
		defer signal.Stop(pause)
	}

	j, err := m.Start(context.Background())
	if err != nil {
		return err
	}

	var finished bool
	handle := func(e job.Event) {
		switch e := e.(type) {
		case job.Finished:
			finished = true
		case job.Progress:
			fmt.Fprintf(w, "progress: %d%%\n", e.Percent)
		case job.Status:
			fmt.Fprintln(w, e.Message)
		}
	}

	for {
		select {
		case e := <-events:
			handle(e)
		case <-stop:
			fmt.Fprintln(w, "stopping...")
			j.Stop()
		case <-pause:
			if j.State() == job.StatePaused {
				err = j.Resume()
			} else {
				err = j.Pause()
			}
			if err != nil {
				fmt.Fprintln(w, "ERROR: toggle pause:", err)
			}
		case <-j.Done():
			// the last events may still be on their way
			timeout := time.After(time.Second)
			for !finished {
				select {
				case e := <-events:
					handle(e)
					continue
				case <-timeout:
				}
				break
			}
			if j.Completed() < j.Len() {
				return errJobStopped
			}
			return nil
		}
	}
}
