/*
go-cvlab is a small collection of classic computer vision programs built on
OpenCV through gocv.

The example subdirectory holds three programs:

  - calibrate estimates camera intrinsics and lens distortion from
    checkerboard images and reports per image reprojection errors.
  - hough detects edges, lines and circles in a road image and paints the
    lane triangle formed by the two strongest lines.
  - track locates reference objects in the first frame of a video with SIFT
    matching and a RANSAC homography, then follows them frame to frame with
    Lucas-Kanade optical flow, moving each boundary by the homography fitted
    to its surviving points.

The tracker package depends only on the narrow interfaces of package vision
so it can run against the OpenCV backend or the pure Go estimator in tests.
*/
package cvlab
