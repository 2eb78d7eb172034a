package provision

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"time"

	"github.com/google/uuid"
	corev1 "k8s.io/api/core/v1"
	k8serrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/wait"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/kubernetes/scheme"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/remotecommand"
	utilexec "k8s.io/utils/exec"
	"k8s.io/utils/ptr"

	"github.com/hollandale/creekrun/pkg/k8s"
)

const (
	workContainerName = "work"
	podWorkDir        = "/creekrun/work"
	invocationLabel   = "creekrun.io/environment"
)

// K8sConfig configures the Kubernetes backend.
type K8sConfig struct {
	Namespace  string
	Image      string
	PodTimeout time.Duration // how long to wait for the pod to become ready
}

// K8sEnvironment provisions one pod per invocation and runs every phase
// command in it via SPDY remote exec. The work dir lives on an emptyDir
// volume inside the pod, so checkout happens in-pod and everything is
// discarded with the pod on Close.
type K8sEnvironment struct {
	client    kubernetes.Interface
	config    *rest.Config
	namespace string
	podName   string
}

// NewK8sEnvironment creates the pod and blocks until it is running.
// The host workDir argument is ignored: the k8s backend keeps its work dir
// inside the pod.
func NewK8sEnvironment(ctx context.Context, _ string, cfg K8sConfig) (*K8sEnvironment, error) {
	if cfg.Image == "" {
		return nil, fmt.Errorf("k8s backend requires an image")
	}
	if cfg.Namespace == "" {
		cfg.Namespace = "default"
	}
	if cfg.PodTimeout == 0 {
		cfg.PodTimeout = 2 * time.Minute
	}

	client, restConfig, err := k8s.NewClient()
	if err != nil {
		return nil, fmt.Errorf("creating k8s client: %w", err)
	}

	podName := fmt.Sprintf("creekrun-%s", uuid.New().String()[:8])

	pod := &corev1.Pod{
		ObjectMeta: metav1.ObjectMeta{
			Name: podName,
			Labels: map[string]string{
				invocationLabel: "true",
			},
		},
		Spec: corev1.PodSpec{
			RestartPolicy: corev1.RestartPolicyNever,
			Volumes: []corev1.Volume{
				{
					Name: "workspace",
					VolumeSource: corev1.VolumeSource{
						EmptyDir: &corev1.EmptyDirVolumeSource{},
					},
				},
			},
			Containers: []corev1.Container{
				{
					Name:            workContainerName,
					Image:           cfg.Image,
					ImagePullPolicy: corev1.PullIfNotPresent,
					Command:         []string{"/bin/sh", "-c", "tail -f /dev/null"},
					WorkingDir:      podWorkDir,
					VolumeMounts: []corev1.VolumeMount{
						{
							Name:      "workspace",
							MountPath: podWorkDir,
						},
					},
					Resources: corev1.ResourceRequirements{
						Requests: corev1.ResourceList{
							corev1.ResourceCPU:    resource.MustParse("100m"),
							corev1.ResourceMemory: resource.MustParse("256Mi"),
						},
					},
				},
			},
		},
	}

	if _, err := client.CoreV1().Pods(cfg.Namespace).Create(ctx, pod, metav1.CreateOptions{}); err != nil {
		return nil, fmt.Errorf("creating pod: %w", err)
	}

	env := &K8sEnvironment{
		client:    client,
		config:    restConfig,
		namespace: cfg.Namespace,
		podName:   podName,
	}

	if err := env.waitReady(ctx, cfg.PodTimeout); err != nil {
		_ = env.Close(context.WithoutCancel(ctx))
		return nil, err
	}

	return env, nil
}

func (e *K8sEnvironment) waitReady(ctx context.Context, timeout time.Duration) error {
	return wait.PollUntilContextTimeout(ctx, 2*time.Second, timeout, true,
		func(ctx context.Context) (bool, error) {
			pod, err := e.client.CoreV1().Pods(e.namespace).Get(ctx, e.podName, metav1.GetOptions{})
			if err != nil {
				return false, err
			}
			switch pod.Status.Phase {
			case corev1.PodRunning:
				return true, nil
			case corev1.PodFailed, corev1.PodSucceeded:
				return false, fmt.Errorf("pod %s terminated before becoming ready", e.podName)
			default:
				return false, nil
			}
		})
}

// Checkout clones inside the pod; the image must ship a git binary.
func (e *K8sEnvironment) Checkout(ctx context.Context, src SourceSpec, progress io.Writer) error {
	cmd := []string{"git", "clone", "--depth", "1", "--single-branch"}
	if src.Ref != "" {
		cmd = append(cmd, "--branch", src.Ref)
	}
	cmd = append(cmd, src.RepoURL, ".")

	res, err := e.Exec(ctx, ExecSpec{Command: cmd, Stdout: progress, Stderr: progress})
	if err != nil {
		return fmt.Errorf("cloning %s: %w", src.RepoURL, err)
	}
	if res.ExitCode != 0 {
		return fmt.Errorf("cloning %s: git exited with status %d", src.RepoURL, res.ExitCode)
	}
	return nil
}

func (e *K8sEnvironment) Exec(ctx context.Context, spec ExecSpec) (*ExecResult, error) {
	if len(spec.Command) == 0 {
		return nil, fmt.Errorf("empty command")
	}

	// Remote exec has no env parameter; prepend env(1)
	cmd := spec.Command
	if len(spec.Env) > 0 {
		wrapped := []string{"env"}
		for k, v := range spec.Env {
			wrapped = append(wrapped, fmt.Sprintf("%s=%s", k, v))
		}
		cmd = append(wrapped, spec.Command...)
	}

	req := e.client.CoreV1().RESTClient().Post().
		Resource("pods").
		Name(e.podName).
		Namespace(e.namespace).
		SubResource("exec")

	req.VersionedParams(&corev1.PodExecOptions{
		Container: workContainerName,
		Command:   cmd,
		Stdin:     spec.Stdin != nil,
		Stdout:    true,
		Stderr:    true,
		TTY:       false,
	}, scheme.ParameterCodec)

	executor, err := remotecommand.NewSPDYExecutor(e.config, "POST", req.URL())
	if err != nil {
		return nil, err
	}

	err = executor.StreamWithContext(ctx, remotecommand.StreamOptions{
		Stdin:  spec.Stdin,
		Stdout: spec.Stdout,
		Stderr: spec.Stderr,
		Tty:    false,
	})
	if err != nil {
		var exitErr utilexec.CodeExitError
		if errors.As(err, &exitErr) {
			return &ExecResult{ExitCode: exitErr.Code}, nil
		}
		return nil, err
	}

	return &ExecResult{ExitCode: 0}, nil
}

func (e *K8sEnvironment) WriteFile(ctx context.Context, name string, data []byte, mode os.FileMode) error {
	target := path.Join(podWorkDir, name)
	script := fmt.Sprintf("umask 077 && cat > %q && chmod %o %q", target, mode.Perm(), target)

	res, err := e.Exec(ctx, ExecSpec{
		Command: []string{"/bin/sh", "-c", script},
		Stdin:   bytes.NewReader(data),
	})
	if err != nil {
		return err
	}
	if res.ExitCode != 0 {
		return fmt.Errorf("writing %s: exit status %d", name, res.ExitCode)
	}
	return nil
}

func (e *K8sEnvironment) RemoveFile(ctx context.Context, name string) error {
	res, err := e.Exec(ctx, ExecSpec{
		Command: []string{"rm", "-f", path.Join(podWorkDir, name)},
	})
	if err != nil {
		return err
	}
	if res.ExitCode != 0 {
		return fmt.Errorf("removing %s: exit status %d", name, res.ExitCode)
	}
	return nil
}

func (e *K8sEnvironment) WorkDir() string {
	return podWorkDir
}

// Close deletes the pod and with it the emptyDir work dir, including the
// materialized credential.
func (e *K8sEnvironment) Close(ctx context.Context) error {
	err := e.client.CoreV1().Pods(e.namespace).Delete(ctx, e.podName, metav1.DeleteOptions{
		GracePeriodSeconds: ptr.To(int64(0)),
	})
	if err != nil && !k8serrors.IsNotFound(err) {
		return err
	}
	return nil
}

// Ensure K8sEnvironment implements Environment.
var _ Environment = (*K8sEnvironment)(nil)
